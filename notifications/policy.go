// Package notifications decides which notifications an intervention change
// produces and delivers them outside the request that caused them.
package notifications

import (
	"strings"

	"github.com/alphasafe/alphasafe-api/models"
)

// Channel is the delivery medium of a notification
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Kind is the template and opt-in category of a notification
type Kind string

const (
	KindAssignment Kind = "assignment" // standard assignment
	KindAssistance Kind = "assistance" // urgent assistance request
	KindBilling    Kind = "billing"
)

// Recipient identifies who receives a notification
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Request is a fully formed notification waiting for delivery
type Request struct {
	Channel      Channel             `json:"channel"`
	Kind         Kind                `json:"kind"`
	Recipient    Recipient           `json:"recipient"`
	Intervention models.Intervention `json:"intervention"`
}

// Urgent reports whether the request uses the urgent assistance framing
func (r Request) Urgent() bool {
	return r.Kind == KindAssistance
}

// PolicyConfig carries the configured inputs of the notification policy
type PolicyConfig struct {
	AdminBillingEmail string
}

// Evaluate returns the notifications produced by moving an intervention
// from prev to next. prev is nil when the intervention was just created.
// staff is the full technician list used to resolve recipients by name.
func Evaluate(prev, next *models.Intervention, staff []models.Technician, cfg PolicyConfig) []Request {
	if next == nil {
		return nil
	}

	b := builder{snapshot: *next, staff: staff}

	if prev == nil {
		if next.Technician != "" {
			kind := KindAssignment
			if next.Status == models.StatusAssistance {
				kind = KindAssistance
			}
			b.emailTechnician(next.Technician, kind)
		}
		return b.requests
	}

	if next.Technician != "" && next.Technician != prev.Technician {
		kind := KindAssignment
		if next.Status == models.StatusAssistance || prev.Status == models.StatusAssistance {
			kind = KindAssistance
		}
		b.emailTechnician(next.Technician, kind)
	}

	if next.Status == models.StatusAssistance && prev.Status != models.StatusAssistance && next.Technician != "" {
		b.emailTechnician(next.Technician, KindAssistance)
		b.pushTechnician(next.Technician)
	}

	if next.Status == models.StatusToInvoice && prev.Status != models.StatusToInvoice {
		b.emailBilling(cfg.AdminBillingEmail)
	}

	return b.requests
}

type builder struct {
	snapshot models.Intervention
	staff    []models.Technician
	requests []Request
	seen     map[string]bool
}

func (b *builder) add(channel Channel, kind Kind, recipient Recipient) {
	key := string(channel) + "|" + string(kind) + "|" + strings.ToLower(recipient.Email) + "|" + recipient.Name
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.requests = append(b.requests, Request{
		Channel:      channel,
		Kind:         kind,
		Recipient:    recipient,
		Intervention: b.snapshot,
	})
}

func (b *builder) byName(name string) []models.Technician {
	var matches []models.Technician
	for _, tech := range b.staff {
		if tech.Name == name {
			matches = append(matches, tech)
		}
	}
	return matches
}

func (b *builder) emailTechnician(name string, kind Kind) {
	for _, tech := range b.byName(name) {
		if !optedIn(&tech, kind) {
			continue
		}
		email := strings.TrimSpace(tech.ContactEmail())
		if email == "" {
			continue
		}
		b.add(ChannelEmail, kind, Recipient{Name: tech.Name, Email: email})
	}
}

func (b *builder) pushTechnician(name string) {
	for _, tech := range b.byName(name) {
		if !optedIn(&tech, KindAssistance) {
			continue
		}
		b.add(ChannelPush, KindAssistance, Recipient{Name: tech.Name})
	}
}

func (b *builder) emailBilling(adminEmail string) {
	included := make(map[string]bool)
	for _, tech := range b.staff {
		if !tech.IsOffice() || !optedIn(&tech, KindBilling) {
			continue
		}
		email := strings.TrimSpace(tech.ContactEmail())
		if email == "" || included[strings.ToLower(email)] {
			continue
		}
		included[strings.ToLower(email)] = true
		b.add(ChannelEmail, KindBilling, Recipient{Name: tech.Name, Email: email})
	}

	adminEmail = strings.TrimSpace(adminEmail)
	if adminEmail != "" && !included[strings.ToLower(adminEmail)] {
		b.add(ChannelEmail, KindBilling, Recipient{Name: "Administration", Email: adminEmail})
	}
}

func optedIn(tech *models.Technician, kind Kind) bool {
	switch kind {
	case KindAssignment:
		return tech.ReceiveAssignmentNotifications
	case KindAssistance:
		return tech.ReceiveAssistanceNotifications
	case KindBilling:
		return tech.ReceiveBillingNotifications
	default:
		return false
	}
}
