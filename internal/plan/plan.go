// Package plan evaluates subscription status and issues redemption keys.
package plan

import (
	"fmt"
	"time"
)

// Kind enumerates the plan statuses a user can be in.
type Kind int

const (
	NotRegistered Kind = iota
	Banned
	NoPlan
	Expired
	Active
)

func (k Kind) String() string {
	switch k {
	case NotRegistered:
		return "not_registered"
	case Banned:
		return "banned"
	case NoPlan:
		return "no_plan"
	case Expired:
		return "expired"
	case Active:
		return "active"
	}
	return "unknown"
}

// Subject is the part of a user record the evaluator looks at.
type Subject struct {
	Expiry *time.Time
	Banned bool
}

// Status is the evaluated plan state. Expiry is set for Expired and Active,
// DaysLeft only for Active.
type Status struct {
	Kind     Kind
	Expiry   time.Time
	DaysLeft int
}

// Evaluate applies the fixed check order: existence, ban, expiry presence, expiry against now.
// A nil subject means the user is not registered.
func Evaluate(s *Subject, now time.Time) Status {
	switch {
	case s == nil:
		return Status{Kind: NotRegistered}
	case s.Banned:
		return Status{Kind: Banned}
	case s.Expiry == nil:
		return Status{Kind: NoPlan}
	}
	exp := *s.Expiry
	if now.After(exp) {
		return Status{Kind: Expired, Expiry: exp}
	}
	return Status{
		Kind:     Active,
		Expiry:   exp,
		DaysLeft: int(exp.Sub(now) / (24 * time.Hour)),
	}
}

// IsActive reports whether the status allows using the VCF wizard.
func (s Status) IsActive() bool { return s.Kind == Active }

const dateLayout = "2006-01-02"

// Label renders the status the way the bot shows it to users.
func (s Status) Label() string {
	switch s.Kind {
	case NotRegistered:
		return "❌ Not Registered"
	case Banned:
		return "🚫 Banned"
	case NoPlan:
		return "❌ No Plan"
	case Expired:
		return fmt.Sprintf("❌ Expired on %s", s.Expiry.Format(dateLayout))
	case Active:
		return fmt.Sprintf("✅ Active (till %s, %d days left)", s.Expiry.Format(dateLayout), s.DaysLeft)
	}
	return "unknown"
}

// FormatDate renders an expiry date without the clock part.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
