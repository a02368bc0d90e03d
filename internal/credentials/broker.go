package credentials

import (
	"context"
	"fmt"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/pkg/fieldcrypt"
)

// OrgStore is the slice of the persistence layer the broker reads from.
type OrgStore interface {
	GetOrganization(ctx context.Context, id string) (*types.Organization, error)
	PrimaryOrganization(ctx context.Context) (*types.Organization, error)
}

// Broker assembles credential contexts on demand. It holds the field
// encryptor but never caches decrypted material.
type Broker struct {
	store OrgStore
	enc   *fieldcrypt.Encryptor
}

func NewBroker(store OrgStore, enc *fieldcrypt.Encryptor) *Broker {
	return &Broker{store: store, enc: enc}
}

// ForOrganization builds a Context from one organization's stored
// credentials. The caller owns the Context and must Clear it.
func (b *Broker) ForOrganization(ctx context.Context, orgID string) (*Context, error) {
	org, err := b.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load organization %s: %w", orgID, err)
	}
	return FromOrganization(org, b.enc)
}

// Primary builds a Context for the primary agency organization, used by
// scheduled runs that have no requesting tenant.
func (b *Broker) Primary(ctx context.Context) (*Context, error) {
	org, err := b.store.PrimaryOrganization(ctx)
	if err != nil {
		return nil, fmt.Errorf("load primary organization: %w", err)
	}
	return FromOrganization(org, b.enc)
}
