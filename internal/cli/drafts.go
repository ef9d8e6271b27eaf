package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/pkg/ports"
)

// DraftPrefix is the key prefix shared by every autosaved draft.
const DraftPrefix = "wizard:draft:"

// ListDrafts writes the autosaved draft keys, optionally restricted to kind.
func ListDrafts(ctx context.Context, store ports.KVStore, kind string, w io.Writer) error {
	lister, ok := store.(ports.KeyLister)
	if !ok {
		return errors.New("the configured store cannot list drafts")
	}
	prefix := DraftPrefix
	if kind != "" {
		prefix = storewizard.DraftKey(kind, "")
	}
	keys, err := lister.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No autosaved drafts found.")
		return nil
	}
	fmt.Fprintln(w, "Autosaved drafts:")
	for _, k := range keys {
		fmt.Fprintln(w, "- "+k)
	}
	return nil
}

// InspectDraft pretty-prints the stored envelope under key.
func InspectDraft(ctx context.Context, store ports.KVStore, key string, w io.Writer) error {
	blob, err := store.Get(ctx, ResolveDraftKey(key))
	if err != nil {
		return fmt.Errorf("failed to load draft %q: %w", key, err)
	}
	var doc any
	if err := json.Unmarshal(blob, &doc); err != nil {
		return fmt.Errorf("draft %q is not valid JSON: %w", key, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveDrafts deletes every key, reporting each outcome. It fails if any removal failed.
func RemoveDrafts(ctx context.Context, store ports.KVStore, keys []string, w io.Writer) error {
	var errs []error
	for _, key := range keys {
		if err := store.Remove(ctx, ResolveDraftKey(key)); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", key, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Removed draft '%s'\n", key)
	}
	return errors.Join(errs...)
}

// ResolveDraftKey accepts either a full store key or "<kind>:<session>".
func ResolveDraftKey(key string) string {
	if strings.HasPrefix(key, DraftPrefix) {
		return key
	}
	if kind, sessionKey, ok := strings.Cut(key, ":"); ok {
		return storewizard.DraftKey(kind, sessionKey)
	}
	return key
}
