package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		RateLimit   float64 `yaml:"rate_limit"`
		PromptDir   string  `yaml:"prompt_dir"`
	} `yaml:"llm"`

	Converter struct {
		Command    string   `yaml:"command"`
		Flags      []string `yaml:"flags"`
		OutputExt  string   `yaml:"output_ext"`
		TimeoutSec int      `yaml:"timeout_sec"`
	} `yaml:"converter"`

	Gate struct {
		TempThresholdC  int    `yaml:"temp_threshold_c"`
		MinFreeMB       int    `yaml:"min_free_mb"`
		WaitTimeoutSec  int    `yaml:"wait_timeout_sec"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
		SMICommand      string `yaml:"smi_command"`
	} `yaml:"gate"`

	Paths struct {
		OutputsDir  string `yaml:"outputs_dir"`
		ImagesDir   string `yaml:"images_dir"`
		TablesDir   string `yaml:"tables_dir"`
		ProfilesDir string `yaml:"profiles_dir"`
		AnalysisDir string `yaml:"analysis_dir"`
		StrategyDir string `yaml:"strategy_dir"`
		CodegenDir  string `yaml:"codegen_dir"`
		CleanedDir  string `yaml:"cleaned_dir"`
	} `yaml:"paths"`

	Splitter struct {
		KeepImages bool `yaml:"keep_images"`
	} `yaml:"splitter"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// Optional .env file carries the converter/LLM environment knobs
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/tidy/config.yaml"),
			"/etc/tidy/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4096
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 1.0
	}

	if config.Converter.Command == "" {
		config.Converter.Command = "marker_single"
	}
	if len(config.Converter.Flags) == 0 {
		config.Converter.Flags = []string{"--force_ocr", "--output_format", "markdown"}
	}
	if config.Converter.OutputExt == "" {
		config.Converter.OutputExt = ".md"
	}

	if config.Gate.TempThresholdC == 0 {
		config.Gate.TempThresholdC = 85
	}
	if config.Gate.MinFreeMB == 0 {
		config.Gate.MinFreeMB = 500
	}
	if config.Gate.WaitTimeoutSec == 0 {
		config.Gate.WaitTimeoutSec = 600
	}
	if config.Gate.PollIntervalSec == 0 {
		config.Gate.PollIntervalSec = 5
	}
	if config.Gate.SMICommand == "" {
		config.Gate.SMICommand = "nvidia-smi"
	}

	if config.Paths.OutputsDir == "" {
		config.Paths.OutputsDir = "temp/outputs"
	}
	if config.Paths.ImagesDir == "" {
		config.Paths.ImagesDir = "temp/pdf2image"
	}
	if config.Paths.TablesDir == "" {
		config.Paths.TablesDir = "temp/each_table"
	}
	if config.Paths.ProfilesDir == "" {
		config.Paths.ProfilesDir = "temp/profile_raw_df"
	}
	if config.Paths.AnalysisDir == "" {
		config.Paths.AnalysisDir = "temp/prompt1_profile"
	}
	if config.Paths.StrategyDir == "" {
		config.Paths.StrategyDir = "temp/prompt2_prompt1"
	}
	if config.Paths.CodegenDir == "" {
		config.Paths.CodegenDir = "temp/prompt3_prompt2"
	}
	if config.Paths.CleanedDir == "" {
		config.Paths.CleanedDir = "temp/cleaned_data"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "pipeline_runs"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if temp := os.Getenv("LLM_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			config.LLM.Temperature = v
		}
	}
	if tokens := os.Getenv("LLM_MAX_TOKENS"); tokens != "" {
		if v, err := strconv.Atoi(tokens); err == nil {
			config.LLM.MaxTokens = v
		}
	}
	if dir := os.Getenv("PROMPT_DIR"); dir != "" {
		config.LLM.PromptDir = dir
	}

	if cli := os.Getenv("MARKER_CLI"); cli != "" {
		config.Converter.Command = cli
	}
	if flags := os.Getenv("MARKER_FLAGS"); flags != "" {
		config.Converter.Flags = strings.Fields(flags)
	}

	if v := os.Getenv("GPU_TEMP_THRESHOLD_C"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Gate.TempThresholdC = n
		}
	}
	if v := os.Getenv("GPU_MEM_FREE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Gate.MinFreeMB = n
		}
	}
	if v := os.Getenv("GPU_WAIT_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Gate.WaitTimeoutSec = n
		}
	}
	if v := os.Getenv("GPU_POLL_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Gate.PollIntervalSec = n
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
