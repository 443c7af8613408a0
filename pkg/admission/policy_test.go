package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/logging"
	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeAllowlist struct {
	entries map[string]*models.BrandAllowlistEntry
	err     error
}

func (f *fakeAllowlist) GetByBrandSlug(_ context.Context, brandSlug string) (*models.BrandAllowlistEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[brandSlug], nil
}

func TestOpenPolicy_AdmitsEverything(t *testing.T) {
	policy := New(ModeOpen, logging.Nop(), nil)
	assert.Equal(t, ModeOpen, policy.Mode())

	ok, err := policy.Permits(context.Background(), "never_seen_brand")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGatedPolicy(t *testing.T) {
	store := &fakeAllowlist{entries: map[string]*models.BrandAllowlistEntry{
		"bozita":        {BrandSlug: "bozita", Status: models.AllowlistStatusActive},
		"barking_heads": {BrandSlug: "barking_heads", Status: models.AllowlistStatusPending},
		"acana":         {BrandSlug: "acana", Status: models.AllowlistStatusRejected},
	}}
	policy := New(ModeGated, logging.Nop(), store)
	assert.Equal(t, ModeGated, policy.Mode())

	tests := []struct {
		name      string
		brandSlug string
		want      bool
	}{
		{"active brand admitted", "bozita", true},
		{"pending brand admitted while review is open", "barking_heads", true},
		{"rejected brand held back", "acana", false},
		{"unknown brand held back", "orijen", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := policy.Permits(context.Background(), tt.brandSlug)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestGatedPolicy_StoreError(t *testing.T) {
	store := &fakeAllowlist{err: errors.New("connection refused")}
	policy := New(ModeGated, logging.Nop(), store)

	ok, err := policy.Permits(context.Background(), "bozita")
	require.Error(t, err)
	assert.False(t, ok)
}
