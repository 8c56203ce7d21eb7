package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL string // 注文アーカイブ用（空ならDBを使わない）

	OrderConfirmDelay    time.Duration // pending -> confirmed（3s）
	OrderStepDelay       time.Duration // 以降の各ステップ（10s）
	OrderNominalDuration time.Duration // 残り時間表示の基準（0なら自動進行の合計）
	OrderAutoProgress    bool          // 注文作成時に自動で進めるか
	ShutdownTimeout      time.Duration // graceful shutdown（10s）
}

// Loadは環境変数。未設定はデフォルト値。
func Load() (Config, error) {
	confirm, err := durationOr("ORDER_CONFIRM_DELAY", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	step, err := durationOr("ORDER_STEP_DELAY", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	nominal, err := durationOr("ORDER_NOMINAL_DURATION", 0)
	if err != nil {
		return Config{}, err
	}
	shutdown, err := durationOr("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	auto, err := boolOr("ORDER_AUTO_PROGRESS", true)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		OrderConfirmDelay:    confirm,
		OrderStepDelay:       step,
		OrderNominalDuration: nominal,
		OrderAutoProgress:    auto,
		ShutdownTimeout:      shutdown,
	}

	//値チェック
	if cfg.OrderConfirmDelay <= 0 {
		return Config{}, fmt.Errorf("ORDER_CONFIRM_DELAY must be positive")
	}
	if cfg.OrderStepDelay <= 0 {
		return Config{}, fmt.Errorf("ORDER_STEP_DELAY must be positive")
	}
	if cfg.OrderNominalDuration < 0 {
		return Config{}, fmt.Errorf("ORDER_NOMINAL_DURATION must not be negative")
	}
	if cfg.GoEnv != "dev" && cfg.GoEnv != "prod" && cfg.GoEnv != "test" {
		return Config{}, fmt.Errorf("GO_ENV must be dev, prod or test")
	}

	return cfg, nil
}

// Addr は listen 用（":8080"）
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// "3s" / "500ms" 形式。数字だけなら秒。
func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}
