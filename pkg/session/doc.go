/*
Package session keeps the live wizard controllers of a process, keyed by
session key.

Access to one session is serialised with reference-counted local locks and,
optionally, a distributed lock so a draft has a single editor across replicas.
*/
package session
