package license

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solunex/internal/store"
	"solunex/pkg/contracts/domain"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeed(t *testing.T) {
	path := writeSeedFile(t, `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-EA
    user_email: one@example.com
    app_id: app-1
    status: active
    expires_at: 2030-01-01T00:00:00Z
    max_devices: 3
    devices:
      - device_id: pre-bound
        bound_at: 2026-01-15T08:30:00Z
  - license_key: sol-1234-1234-1234-1234-b6
    status: pending
    max_devices: 1
`)

	st := store.NewMemoryStore(nil)
	created, err := LoadSeed(context.Background(), st, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, st.Len())

	lic, err := st.Get(context.Background(), "SOL-W56J-UPH1-N3YG-2B9R-EA")
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseStatusActive, lic.Status)
	assert.Equal(t, "one@example.com", lic.UserEmail)
	assert.Equal(t, 3, lic.MaxDevices)
	require.NotNil(t, lic.ExpiresAt)
	require.Len(t, lic.BoundDevices, 1)
	assert.Equal(t, "pre-bound", lic.BoundDevices[0].DeviceID)
	assert.Equal(t, int64(1), lic.Version)

	// Keys are normalized on the way in.
	norm, err := st.Get(context.Background(), "SOL-1234-1234-1234-1234-B6")
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseStatusPending, norm.Status)
	assert.Equal(t, 1, norm.MaxDevices)
}

func TestLoadSeedIsIdempotent(t *testing.T) {
	path := writeSeedFile(t, `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-EA
    max_devices: 2
`)

	st := store.NewMemoryStore(nil)
	created, err := LoadSeed(context.Background(), st, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = LoadSeed(context.Background(), st, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, st.Len())
}

func TestLoadSeedRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name: "bad checksum",
			content: `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-00
`,
			errPart: "checksum",
		},
		{
			name: "unsupported status",
			content: `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-EA
    status: frozen
`,
			errPart: "unsupported seed status",
		},
		{
			name: "roster over capacity",
			content: `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-EA
    max_devices: 1
    devices:
      - device_id: a
      - device_id: b
`,
			errPart: "max_devices",
		},
		{
			name: "duplicate device",
			content: `
licenses:
  - license_key: SOL-W56J-UPH1-N3YG-2B9R-EA
    max_devices: 3
    devices:
      - device_id: a
      - device_id: a
`,
			errPart: "bound twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSeedFile(t, tt.content)
			_, err := LoadSeed(context.Background(), store.NewMemoryStore(nil), path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadSeedMissingFile(t *testing.T) {
	_, err := LoadSeed(context.Background(), store.NewMemoryStore(nil), "/does/not/exist.yaml", nil)
	assert.Error(t, err)
}
