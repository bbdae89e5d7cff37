package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative-salesdesk/server/internal/core"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

const testCatalog = `{
  "categories": [
    {"name": "Traumaticas", "items": [
      {"title": "Pistola Retay G19 Negra", "brand": "Retay", "model": "G19", "price": 1850000},
      {"title": "Revolver Ekol Viper", "brand": "Ekol", "price": 1200000, "available": false}
    ]},
    {"name": "Defensa", "items": [
      {"title": "Gas pimienta 60ml", "price": 45000}
    ]}
  ]
}`

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

// setupEnv points the configuration at a temp catalog and a missing env file.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("CATALOG_PATH", path)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AGENTS", "ana|Ana|+573001112233,luis|Luis")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, core.Environment("development"), cfg.Environment)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 3, cfg.Conversation.PurchaseMinExchanges)
	assert.Equal(t, 5*time.Minute, cfg.Classifier.LoopWindow)
	assert.Equal(t, "COP", cfg.Prompt.Currency)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Empty(t, cfg.Agents)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("REDIS_POOL_SIZE", "4")
	t.Setenv("SEARCH_MAX_RESULTS", "8")
	t.Setenv("CLASSIFIER_LOOP_WINDOW", "90s")
	t.Setenv("AGENTS", "ana|Ana|+573001112233, luis")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
	assert.Equal(t, 4, cfg.Redis.PoolSize)
	assert.Equal(t, 8, cfg.Search.MaxResults)
	assert.Equal(t, 90*time.Second, cfg.Classifier.LoopWindow)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "+573001112233", cfg.Agents[0].ContactHandle)
	assert.Equal(t, "luis", cfg.Agents[1].Name)
	assert.Equal(t, 1, cfg.Agents[1].Position)
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PROMPT_BUSINESS_NAME=Tienda Norte\n"), 0o644))
	// registered so the value godotenv sets is removed after the test
	t.Setenv("PROMPT_BUSINESS_NAME", "")
	require.NoError(t, os.Unsetenv("PROMPT_BUSINESS_NAME"))

	cfg, err := LoadConfig(envPath)
	require.NoError(t, err)
	assert.Equal(t, "Tienda Norte", cfg.Prompt.BusinessName)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SEARCH_MAX_RESULTS", "many")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "classify", "--sender", "573001234567", "--exchanges", "0", "quiero", "hablar", "con", "un", "asesor")
	require.NoError(t, err)
	assert.Contains(t, out, "outcome: ESCALATE_HUMAN_REQUEST")

	out, err = run(t, dir, "classify", "--sender", "573001234567", "tienen", "retay")
	require.NoError(t, err)
	assert.Contains(t, out, "outcome: PRODUCT_SEARCH_REPLY")
}

func TestSearchCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "search", "--limit", "2", "pistola", "retay")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: search")
	assert.Contains(t, out, "Pistola Retay G19 Negra")
}

func TestAdminCommandSeedsRoster(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "admin", "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "luis")

	_, err = run(t, dir, "admin", "dance")
	assert.Error(t, err)
}

func TestAdminCommandOverRedis(t *testing.T) {
	dir := setupEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")

	out, err := run(t, dir, "admin", "agent", "off", "luis")
	require.NoError(t, err)
	assert.Contains(t, out, "asesor luis desactivado")

	out, err = run(t, dir, "admin", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "catalogo: 3 productos (2 disponibles)")
}

func TestCatalogCheck(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "catalog", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "products: 3 (2 available)")
	assert.Contains(t, out, "categories (2)")

	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"categories": [`), 0o644))
	_, err = run(t, dir, "catalog", "check", bad)
	assert.Error(t, err)
}

func TestServeRequiresAPIKey(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := run(t, dir, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
