package extractors

import (
	"context"
	"errors"

	"github.com/ib823/sapforensics/internal/extract"
)

// Interfaces reads the integration surface: RFC destinations, IDoc traffic,
// and partner profiles. When live, each destination is pinged so the gap
// analyzer can flag unreachable remotes.
type Interfaces struct{}

// NewInterfaces creates the interface extractor.
func NewInterfaces() extract.Extractor {
	return &Interfaces{}
}

// Descriptor implements extract.Extractor.
func (e *Interfaces) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "interfaces",
		Name:     "Interfaces and Destinations",
		Module:   ModuleBasis,
		Category: CategoryInterface,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *Interfaces) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "RFCDES", Description: "RFC destinations", Critical: true},
		{Name: "EDIDC", Description: "IDoc control records"},
		{Name: "EDPP1", Description: "Partner profiles"},
	}
}

// Extract implements extract.Extractor.
func (e *Interfaces) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	destinations, err := sess.ReadTable(ctx, "RFCDES", extract.ReadOptions{
		Fields: []string{"RFCDEST", "RFCTYPE", "RFCOPTIONS"},
	})
	if err == nil {
		payload["destinations"] = destinations
		payload["unreachable_destinations"] = e.pingDestinations(ctx, sess, destinations)
	}

	readInto(ctx, sess, payload, "idoc_control", "EDIDC", extract.ReadOptions{
		Fields:  []string{"DOCNUM", "MESTYP", "SNDPRN", "RCVPRN", "STATUS", "CREDAT"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "partner_profiles", "EDPP1", extract.ReadOptions{})

	return payload, nil
}

// pingDestinations probes each destination once. Offline runs have no
// connectivity, so a missing ping fixture leaves the list empty rather
// than marking every destination unreachable.
func (e *Interfaces) pingDestinations(ctx context.Context, sess *extract.Session, destinations []extract.Row) []string {
	unreachable := make([]string, 0)

	for _, row := range destinations {
		dest := stringField(row, "RFCDEST")
		if dest == "" {
			continue
		}

		_, err := sess.CallFunction(ctx, "RFC_PING", map[string]any{"destination": dest})
		if err != nil && !errors.Is(err, extract.ErrNoFixture) {
			unreachable = append(unreachable, dest)
		}
	}

	return unreachable
}
