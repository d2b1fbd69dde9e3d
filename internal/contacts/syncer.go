package contacts

import (
	"context"
	"log/slog"

	"github.com/geocoder89/autocabinet/internal/crm"
	"github.com/geocoder89/autocabinet/internal/domain/user"
)

// Syncer mirrors a freshly registered user into the CRM as a contact.
type Syncer interface {
	SyncContact(ctx context.Context, u user.User) (contactID string, err error)
}

type ContactAdder interface {
	AddContact(ctx context.Context, fields crm.ContactFields) (string, error)
}

type CRMSyncer struct {
	crm ContactAdder
}

func NewCRMSyncer(c ContactAdder) *CRMSyncer {
	return &CRMSyncer{crm: c}
}

func (s *CRMSyncer) SyncContact(ctx context.Context, u user.User) (string, error) {
	return s.crm.AddContact(ctx, ContactFieldsFor(u))
}

// ContactFieldsFor builds the crm.contact.add payload: name (or login), work email, work phone if any.
func ContactFieldsFor(u user.User) crm.ContactFields {
	fields := crm.ContactFields{
		Name:  u.DisplayName(),
		Email: []crm.MultiField{{Value: u.Email, ValueType: "WORK"}},
	}

	if u.Phone != nil && *u.Phone != "" {
		fields.Phone = []crm.MultiField{{Value: *u.Phone, ValueType: "WORK"}}
	}

	return fields
}

// LogSyncer is used when no CRM webhook is configured.
type LogSyncer struct {
	log *slog.Logger
}

func NewLogSyncer(log *slog.Logger) *LogSyncer { return &LogSyncer{log: log} }

func (s *LogSyncer) SyncContact(ctx context.Context, u user.User) (string, error) {
	s.log.InfoContext(ctx, "contact_sync_skipped", "user_id", u.ID, "reason", "crm not configured")
	return "", nil
}
