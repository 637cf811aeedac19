// Command serialline performs a one-shot exchange with a serial device:
// optionally write a message, then read back with one of the four read
// modes. Line parameters come from a YAML config file or environment
// variables.
//
// Example:
//
//	serialline -config line.yaml -send "*IDN?\r\n" -mode line
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	serialline "github.com/luhtfiimanal/go-serial-line"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type fileConfig struct {
	Device     string  `mapstructure:"device"`
	BaudRate   int     `mapstructure:"baudrate"`
	CharLength int     `mapstructure:"charlength"`
	Parity     string  `mapstructure:"parity"`
	StopBits   float64 `mapstructure:"stopbits"`
	TimeoutMs  int     `mapstructure:"timeout_ms"`
	Newline    int     `mapstructure:"newline"`
}

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file with the line parameters")
		send    = flag.String("send", "", "characters to write before reading")
		mode    = flag.String("mode", "line", "read mode: raw, nchar, line or retry")
		arg     = flag.Int("arg", 0, "mode argument: character count for nchar, attempts for retry")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	req, err := parseMode(*mode, *arg)
	if err != nil {
		logger.Fatal("parse mode", zap.Error(err))
	}

	line, err := serialline.Open(cfg, serialline.WithLogger(logger))
	if err != nil {
		logger.Fatal("open line", zap.Error(err))
	}
	defer line.Close()

	out, err := serialline.WithReconnect(line, func() ([]byte, error) {
		if *send != "" {
			return line.WriteRead([]byte(*send), req.Encode())
		}
		return line.Read(req)
	})
	if err != nil {
		logger.Fatal("exchange failed", zap.Error(err))
	}
	fmt.Printf("%q\n", out)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(path string) (serialline.Config, error) {
	v := viper.New()
	v.SetDefault("device", "/dev/ttyUSB0")
	v.SetDefault("baudrate", 9600)
	v.SetDefault("charlength", 8)
	v.SetDefault("parity", "none")
	v.SetDefault("stopbits", 1)
	v.SetDefault("timeout_ms", 100)
	v.SetDefault("newline", 13)
	v.SetEnvPrefix("SERIALLINE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return serialline.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return serialline.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	parity, err := parseParity(fc.Parity)
	if err != nil {
		return serialline.Config{}, err
	}
	stopBits, err := parseStopBits(fc.StopBits)
	if err != nil {
		return serialline.Config{}, err
	}
	timeout, err := serialline.TimeoutFromMillis(fc.TimeoutMs)
	if err != nil {
		return serialline.Config{}, err
	}
	if fc.Newline < 0 || fc.Newline > 255 {
		return serialline.Config{}, fmt.Errorf("newline has to be 0..255, got %d", fc.Newline)
	}

	return serialline.Config{
		Device:     fc.Device,
		BaudRate:   fc.BaudRate,
		CharLength: fc.CharLength,
		Parity:     parity,
		StopBits:   stopBits,
		Timeout:    timeout,
		Newline:    byte(fc.Newline),
	}, nil
}

func parseParity(s string) (serialline.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "empty", "":
		return serialline.ParityNone, nil
	case "odd":
		return serialline.ParityOdd, nil
	case "even":
		return serialline.ParityEven, nil
	}
	return 0, fmt.Errorf("parity has to be none, empty, odd or even, got %q", s)
}

func parseStopBits(v float64) (serialline.StopBits, error) {
	switch v {
	case 1:
		return serialline.StopBitsOne, nil
	case 1.5:
		return serialline.StopBitsOnePointFive, nil
	case 2:
		return serialline.StopBitsTwo, nil
	}
	return 0, fmt.Errorf("stopbits has to be 1, 1.5 or 2, got %v", v)
}

func parseMode(mode string, arg int) (serialline.ReadRequest, error) {
	switch strings.ToLower(mode) {
	case "raw":
		return serialline.ReadRequest{Mode: serialline.ReadRaw}, nil
	case "nchar":
		return serialline.ReadRequest{Mode: serialline.ReadNChar, Arg: arg}, nil
	case "line":
		return serialline.ReadRequest{Mode: serialline.ReadLine}, nil
	case "retry":
		return serialline.ReadRequest{Mode: serialline.ReadRetry, Arg: arg}, nil
	}
	return serialline.ReadRequest{}, fmt.Errorf("mode has to be raw, nchar, line or retry, got %q", mode)
}
