// Package contractor implements identity resolution, merging, and
// batch reconciliation for contractor records.
package contractor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Resolver finds the existing record an incoming contractor refers to,
// if any. Matching runs as a cascade: phone, then email, then website
// domain plus name.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve returns the existing contractor the incoming record matches,
// or nil when it is new. An email hit with conflicting phones is
// decisive: the records belong to different businesses and the cascade
// stops without trying the website rule.
func (r *Resolver) Resolve(ctx context.Context, incoming *model.Contractor) (*model.Contractor, error) {
	phone := normalize.Phone(incoming.Phone)

	if len(phone) >= normalize.MinPhoneDigits {
		match, err := r.matchByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	if email := normalize.Email(incoming.Email); email != "" {
		match, err := r.store.FindByNormalizedEmail(ctx, email)
		if err != nil {
			return nil, eris.Wrap(err, "contractor: resolve by email")
		}
		if match != nil {
			if phonesConflict(phone, normalize.Phone(match.Phone)) {
				return nil, nil
			}
			return match, nil
		}
	}

	return r.matchByWebsite(ctx, incoming, phone)
}

func (r *Resolver) matchByPhone(ctx context.Context, phone string) (*model.Contractor, error) {
	all, err := r.store.AllContractors(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "contractor: resolve by phone")
	}
	for i := range all {
		if normalize.Phone(all[i].Phone) == phone {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (r *Resolver) matchByWebsite(ctx context.Context, incoming *model.Contractor, phone string) (*model.Contractor, error) {
	domain := normalize.Website(incoming.Website)
	if domain == "" {
		return nil, nil
	}

	candidates, err := r.store.FindByWebsiteDomain(ctx, domain)
	if err != nil {
		return nil, eris.Wrap(err, "contractor: resolve by website")
	}

	name := normalize.Name(incoming.Name)
	for i := range candidates {
		c := &candidates[i]
		if !namesOverlap(name, normalize.Name(c.Name)) {
			continue
		}
		if phonesConflict(phone, normalize.Phone(c.Phone)) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

// phonesConflict reports whether two normalized phones are both present
// and differ. Any two differing phones mark distinct businesses, even
// partial ones.
func phonesConflict(a, b string) bool {
	return a != "" && b != "" && a != b
}

// namesOverlap reports whether one normalized name contains the other.
func namesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
