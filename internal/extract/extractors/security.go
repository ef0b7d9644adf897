package extractors

import (
	"context"

	"github.com/ib823/sapforensics/internal/extract"
)

// Security reads users, roles, role assignments and authorization values.
type Security struct{}

// NewSecurity creates the security extractor.
func NewSecurity() extract.Extractor {
	return &Security{}
}

// Descriptor implements extract.Extractor.
func (e *Security) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "security",
		Name:     "Users and Authorizations",
		Module:   ModuleBasis,
		Category: CategorySecurity,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *Security) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "USR02", Description: "User logon data", Critical: true},
		{Name: "AGR_USERS", Description: "Role assignments", Critical: true},
		{Name: "AGR_DEFINE", Description: "Role definitions"},
		{Name: "UST12", Description: "Authorization values"},
		{Name: "USR40", Description: "Forbidden passwords"},
	}
}

// Extract implements extract.Extractor.
func (e *Security) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "users", "USR02", extract.ReadOptions{
		Fields: []string{"BNAME", "USTYP", "GLTGB", "TRDAT", "UFLAG"},
	})
	readInto(ctx, sess, payload, "role_assignments", "AGR_USERS", extract.ReadOptions{
		Fields: []string{"AGR_NAME", "UNAME", "FROM_DAT", "TO_DAT"},
	})
	readInto(ctx, sess, payload, "roles", "AGR_DEFINE", extract.ReadOptions{})
	readInto(ctx, sess, payload, "authorization_values", "UST12", extract.ReadOptions{MaxRows: defaultMaxRows})
	readInto(ctx, sess, payload, "forbidden_passwords", "USR40", extract.ReadOptions{})

	return payload, nil
}
