package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App         App         `mapstructure:",squash"`
	Server      Server      `mapstructure:",squash"`
	Database    Database    `mapstructure:",squash"`
	Aggregator  Aggregator  `mapstructure:",squash"`
	Celebration Celebration `mapstructure:",squash"`
	Audio       Audio       `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

// Aggregator controla o recálculo dos totais e rankings.
type Aggregator struct {
	RefreshIntervalSeconds int `mapstructure:"aggregator_refresh_interval_seconds"`
	MonthRankingLimit      int `mapstructure:"aggregator_month_ranking_limit"`
}

// RefreshInterval nunca fica abaixo de 60s: o tick periódico é uma rede de
// segurança contra notificações perdidas, não um canal de atualização.
func (a Aggregator) RefreshInterval() time.Duration {
	if a.RefreshIntervalSeconds < 60 {
		return 60 * time.Second
	}
	return time.Duration(a.RefreshIntervalSeconds) * time.Second
}

// Celebration controla a sessão de celebração (balão + confete + som).
type Celebration struct {
	FallbackDurationMs   int `mapstructure:"celebration_fallback_duration_ms"`
	CompletionSlackMs    int `mapstructure:"celebration_completion_slack_ms"`
	ConfettiTickMs       int `mapstructure:"celebration_confetti_tick_ms"`
	ConfettiMaxParticles int `mapstructure:"celebration_confetti_max_particles"`
}

func (c Celebration) FallbackDuration() time.Duration {
	return time.Duration(c.FallbackDurationMs) * time.Millisecond
}

func (c Celebration) CompletionSlack() time.Duration {
	return time.Duration(c.CompletionSlackMs) * time.Millisecond
}

func (c Celebration) ConfettiTick() time.Duration {
	return time.Duration(c.ConfettiTickMs) * time.Millisecond
}

// Audio controla o cache de clipes e o contexto de reprodução.
type Audio struct {
	LoadTimeoutSeconds   int  `mapstructure:"audio_load_timeout_seconds"`
	ProbeIntervalSeconds int  `mapstructure:"audio_probe_interval_seconds"`
	SampleRate           int  `mapstructure:"audio_sample_rate"`
	PreloadOnStart       bool `mapstructure:"audio_preload_on_start"`
}

func (a Audio) LoadTimeout() time.Duration {
	return time.Duration(a.LoadTimeoutSeconds) * time.Second
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8010)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/celebration")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	// Defaults do agregador
	viper.SetDefault("AGGREGATOR_REFRESH_INTERVAL_SECONDS", 60) // tick defensivo de recálculo
	viper.SetDefault("AGGREGATOR_MONTH_RANKING_LIMIT", 10)      // top 10 do mês

	// Defaults da celebração
	viper.SetDefault("CELEBRATION_FALLBACK_DURATION_MS", 3000) // duração sem áudio
	viper.SetDefault("CELEBRATION_COMPLETION_SLACK_MS", 1500)  // folga após o fim previsto do áudio
	viper.SetDefault("CELEBRATION_CONFETTI_TICK_MS", 250)      // intervalo entre emissões de confete
	viper.SetDefault("CELEBRATION_CONFETTI_MAX_PARTICLES", 80) // emissão inicial

	// Defaults do áudio
	viper.SetDefault("AUDIO_LOAD_TIMEOUT_SECONDS", 10)  // espera máxima por um clipe
	viper.SetDefault("AUDIO_PROBE_INTERVAL_SECONDS", 30) // sonda de vitalidade do contexto
	viper.SetDefault("AUDIO_SAMPLE_RATE", 44100)
	viper.SetDefault("AUDIO_PRELOAD_ON_START", true)

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// loadEnvFile tenta carregar o .env das localizações conhecidas.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado de:", location)
			return
		}
	}
}
