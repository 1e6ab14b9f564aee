package app

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ErrUsage 命令行参数错误
var ErrUsage = errors.New("app: invalid arguments")

// LoadConfig 加载配置文件并应用环境变量，然后按日志配置安装默认 logger
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

// SetDirectory 把位置参数中的 host/port 写入配置
func SetDirectory(cfg *config.Config, host, port string) error {
	p, err := ParsePort(port)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("%w: empty directory host", ErrUsage)
	}
	cfg.Directory.Host = host
	cfg.Directory.Port = p
	return nil
}

// ParsePort 解析 1-65535 的端口
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: port %q", ErrUsage, s)
	}
	return p, nil
}

// ParseCoordinate 解析有限的 x、y
func ParseCoordinate(xs, ys string) (types.Coordinate, error) {
	x, err := parseFinite(xs)
	if err != nil {
		return types.Coordinate{}, err
	}
	y, err := parseFinite(ys)
	if err != nil {
		return types.Coordinate{}, err
	}
	return types.Coordinate{X: x, Y: y}, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: coordinate %q", ErrUsage, s)
	}
	return v, nil
}
