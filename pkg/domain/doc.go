/*
Package domain contains the core domain models of the storewizard engine.

It defines the entities a guided creation session works with: the ordered
step definitions, the in-progress Draft, validation outcomes, submission plans
and their results, and reusable templates. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - StepDefinition: one page of the wizard, with its field rules and remote checks.
  - Draft: the mutable field bag being built across steps.
  - ValidationOutcome: the result of validating a single step.
  - SubmissionStep / SubmissionResult: the ordered create operations and their saga log.
  - Template: a read-only field bag merged into a draft.
*/
package domain
