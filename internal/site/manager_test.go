package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plausctl/internal/config"
)

func testManager(t *testing.T) (*Manager, *config.Manager) {
	t.Helper()
	cfg := config.NewManager(t.TempDir())
	return NewManager(cfg), cfg
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("my-blog"))
	assert.True(t, IsValidName("site_2"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("has space"))
	assert.False(t, IsValidName("dots.are.out"))
	assert.False(t, IsValidName("../escape"))

	long := make([]byte, maxProfileName+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, IsValidName(string(long)))
}

func TestCreateAndLoad(t *testing.T) {
	m, _ := testManager(t)
	require.NoError(t, m.Create("blog", "blog.example.com", "key-123"))

	p, err := m.Load("blog")
	require.NoError(t, err)
	assert.Equal(t, "blog", p.Name)
	assert.Equal(t, "blog.example.com", p.Domain)
	assert.Equal(t, "key-123", p.APIKey)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestCreateRejectsDuplicates(t *testing.T) {
	m, _ := testManager(t)
	require.NoError(t, m.Create("blog", "blog.example.com", "key"))
	assert.Error(t, m.Create("blog", "other.example.com", "key"))
}

func TestCreateRequiresDomainAndKey(t *testing.T) {
	m, _ := testManager(t)
	assert.Error(t, m.Create("blog", "", "key"))
	assert.Error(t, m.Create("blog", "blog.example.com", "  "))
	assert.Error(t, m.Create("bad name", "blog.example.com", "key"))
}

func TestListReturnsAllProfiles(t *testing.T) {
	m, _ := testManager(t)

	profiles, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	require.NoError(t, m.Create("blog", "blog.example.com", "k1"))
	require.NoError(t, m.Create("shop", "shop.example.com", "k2"))

	profiles, err = m.List()
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestUseMarksProfileActive(t *testing.T) {
	m, cfgMgr := testManager(t)
	require.NoError(t, m.Create("blog", "blog.example.com", "key"))
	require.NoError(t, m.Use("blog"))

	cfg, err := cfgMgr.Load()
	require.NoError(t, err)
	assert.Equal(t, "blog", cfg.ActiveSite)

	active, err := m.Active()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "blog.example.com", active.Domain)
}

func TestActiveReturnsNilWhenUnset(t *testing.T) {
	m, _ := testManager(t)
	active, err := m.Active()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestDeleteClearsActiveMarker(t *testing.T) {
	m, cfgMgr := testManager(t)
	require.NoError(t, m.Create("blog", "blog.example.com", "key"))
	require.NoError(t, m.Use("blog"))
	require.NoError(t, m.Delete("blog"))

	cfg, err := cfgMgr.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ActiveSite)

	_, err = m.Load("blog")
	assert.Error(t, err)
}

func TestDeleteUnknownProfile(t *testing.T) {
	m, _ := testManager(t)
	assert.Error(t, m.Delete("ghost"))
}
