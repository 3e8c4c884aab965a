package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kgframe/internal/model"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `storage:
  path: /tmp/catalog.db
llm:
  provider: ollama
  ollama:
    model: mistral
concurrency:
  llm_workers: 9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KGFRAME_SERVER_ADDR", ":9999")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("KGFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	c, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	tests := map[string]struct {
		got, want interface{}
	}{
		"file value":                 {c.Storage.Path, "/tmp/catalog.db"},
		"nested file value":          {c.LLM.Ollama.Model, "mistral"},
		"file int":                   {c.Concurrency.LLMWorkers, 9},
		"env overrides default":      {c.Server.Addr, ":9999"},
		"default kept":               {c.Concurrency.ImportWorkers, 4},
		"provider key from env":      {c.LLM.Anthropic.APIKey, "sk-ant-test"},
		"ollama base url from env":   {c.LLM.Ollama.BaseURL, "http://ollama:11434"},
		"embedding follows ollama":   {c.Embedding.BaseURL, "http://ollama:11434"},
		"unrelated default survives": {c.LLM.HuggingFace.FallbackModel, "google/flan-t5-large"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestApplyProviderEnv_ConfigWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	c := model.DefaultConfig()
	c.LLM.OpenAI.APIKey = "from-file"
	applyProviderEnv(&c)
	if c.LLM.OpenAI.APIKey != "from-file" {
		t.Errorf("api key = %q, configured key must win", c.LLM.OpenAI.APIKey)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# kgframe configuration") {
		t.Errorf("missing header:\n%s", data)
	}

	var decoded model.Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if decoded.Server.Addr != model.DefaultConfig().Server.Addr {
		t.Errorf("server.addr = %q", decoded.Server.Addr)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when the config already exists")
	}
}

func TestMaskSecrets(t *testing.T) {
	c := model.DefaultConfig()
	c.LLM.OpenAI.APIKey = "sk-1234567890"
	c.LLM.Anthropic.APIKey = "abc"

	masked := maskSecrets(c)
	if masked.LLM.OpenAI.APIKey != "****7890" {
		t.Errorf("openai key = %q", masked.LLM.OpenAI.APIKey)
	}
	if masked.LLM.Anthropic.APIKey != "****" {
		t.Errorf("short key = %q", masked.LLM.Anthropic.APIKey)
	}
	if masked.LLM.HuggingFace.APIKey != "" {
		t.Error("empty key must stay empty")
	}
	if c.LLM.OpenAI.APIKey != "sk-1234567890" {
		t.Error("maskSecrets modified its input")
	}
}

func TestSelectBackend_Disabled(t *testing.T) {
	c := model.DefaultConfig()
	c.LLM.Enabled = false
	if b := selectBackend(context.Background(), c); b.Name != "none" || b.Enabled() {
		t.Errorf("backend = %+v, want none", b)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "compare", "import", "dedup", "describe", "llm", "cache", "config", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}
