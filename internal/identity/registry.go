package identity

import (
	"sort"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

var ErrUnknownParticipant = errorsmod.Register("identity", 2, "unknown participant")

// Entry maps one human-readable participant name to that participant's
// identity on each ledger.
type Entry struct {
	Name         string
	AssetParty   string
	PaymentParty string
}

// Registry resolves participant names to ledger party ids. Entries are fixed
// at construction; nothing is added or removed at runtime, so lookups need no
// locking.
type Registry struct {
	entries map[string]Entry
}

func NewRegistry(entries ...Entry) *Registry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		e.Name = name
		m[name] = e
	}
	return &Registry{entries: m}
}

func (r *Registry) AssetParty(name string) (string, error) {
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return "", errorsmod.Wrap(ErrUnknownParticipant, name)
	}
	return e.AssetParty, nil
}

func (r *Registry) PaymentParty(name string) (string, error) {
	e, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return "", errorsmod.Wrap(ErrUnknownParticipant, name)
	}
	return e.PaymentParty, nil
}

// Names lists the registered participant names in stable order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
