package resolver

import (
	"context"
	"courtkeeper/internal/entitlements/repository"
	"courtkeeper/pkg/model"
	"fmt"
)

// Resolver decides how much access a user has to a court for one slot.
type Resolver struct {
	repo repository.EntitlementRepository
}

func NewResolver(repo repository.EntitlementRepository) *Resolver {
	return &Resolver{repo: repo}
}

// CheckAccess considers every entitlement valid on the slot's date that
// covers the court. Unrestricted access is allowed, a restricted entitlement
// is restricted inside one of its windows and grants nothing outside them.
// The best level found wins.
func (r *Resolver) CheckAccess(ctx context.Context, clubID, userID string, slot model.TimeSlot) (model.AccessDecision, error) {
	decision := model.AccessDecision{Level: model.AccessNone}
	if userID == "" {
		return decision, nil
	}

	entitlements, err := r.repo.FindValidOn(ctx, clubID, userID, slot.Date)
	if err != nil {
		return decision, fmt.Errorf("failed to load entitlements: %w", err)
	}

	for _, e := range entitlements {
		if !e.ValidOn(slot.Date) || !e.CoversResource(slot.ResourceID) {
			continue
		}
		level := levelFor(e.Access, slot)
		if level.Outranks(decision.Level) {
			decision = model.AccessDecision{Level: level, Entitlement: e}
		}
	}

	return decision, nil
}

func levelFor(rule model.AccessRule, slot model.TimeSlot) model.AccessLevel {
	switch rule.Kind {
	case model.AccessUnrestricted:
		return model.AccessAllowed
	case model.AccessWindowed:
		for _, w := range rule.Windows {
			if w.Covers(slot) {
				return model.AccessRestricted
			}
		}
	}
	return model.AccessNone
}
