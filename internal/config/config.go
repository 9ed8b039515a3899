/*
 * config.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package config gathers the settings of the chemlive process from a .env file,
// the environment, the command line and an optional YAML file with run defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rmera/chemlive/modifier"
)

type Config struct {
	URL       string //websocket URL of the visualization service
	Token     string
	AuthToken string
	Public    bool //register the run kinds as public

	DataDir    string //ledger and local archives go here
	Archive    bool
	StatusAddr string //empty disables the status server
	CacheSize  int

	XTBCommand string
	XTBMethod  string
	XTBCPUs    int

	ReconnectMax time.Duration

	S3 S3Config

	DefaultsFile string
	Defaults     map[modifier.Kind]modifier.RunConfig

	// Offline mode.
	Local      string //structure file; when set, no connection is made
	Kind       string
	ConfigJSON string
	Out        string
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Load reads a .env file in the working directory, if there is one, then the
// environment and finally the command line arguments args (without the program
// name). Flags take precedence over the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	C := &Config{}
	fs := flag.NewFlagSet("chemlive", flag.ContinueOnError)
	fs.StringVar(&C.URL, "url", os.Getenv("VIS_URL"), "websocket URL of the visualization service")
	fs.StringVar(&C.Token, "token", os.Getenv("VIS_TOKEN"), "bearer token for the service")
	fs.StringVar(&C.AuthToken, "auth-token", os.Getenv("VIS_AUTH_TOKEN"), "auth token for the service")
	fs.BoolVar(&C.Public, "public", envBool("CHEMLIVE_PUBLIC", false), "register the modifiers as public")
	fs.StringVar(&C.DataDir, "data", firstNonEmpty(os.Getenv("CHEMLIVE_DATA_DIR"), "chemlive-data"), "directory for the run ledger and archives")
	fs.BoolVar(&C.Archive, "archive", envBool("CHEMLIVE_ARCHIVE", true), "keep a local archive of each run")
	fs.StringVar(&C.StatusAddr, "status", firstNonEmpty(os.Getenv("CHEMLIVE_STATUS_ADDR"), "127.0.0.1:8089"), "address of the status server, empty to disable")
	fs.IntVar(&C.CacheSize, "cache", envInt("CHEMLIVE_CACHE_SIZE", 256), "number of calculations kept by the backend cache")
	fs.StringVar(&C.XTBCommand, "xtb", firstNonEmpty(os.Getenv("CHEMLIVE_XTB_COMMAND"), "xtb"), "xtb executable")
	fs.StringVar(&C.XTBMethod, "xtb-method", firstNonEmpty(os.Getenv("CHEMLIVE_XTB_METHOD"), "gfn2"), "xtb method: gfn0, gfn1, gfn2 or gfnff")
	fs.IntVar(&C.XTBCPUs, "cpus", envInt("CHEMLIVE_XTB_CPUS", 1), "threads for each xtb calculation")
	fs.DurationVar(&C.ReconnectMax, "reconnect-max", envDuration("CHEMLIVE_RECONNECT_MAX", time.Minute), "longest wait between reconnection attempts")
	fs.StringVar(&C.DefaultsFile, "defaults", os.Getenv("CHEMLIVE_DEFAULTS"), "YAML file with the default run configurations")
	fs.StringVar(&C.Local, "local", "", "run once on this XYZ file instead of connecting to the service")
	fs.StringVar(&C.Kind, "kind", string(modifier.GeomOpt), "run kind, for -local")
	fs.StringVar(&C.ConfigJSON, "config-json", "", "run configuration in JSON, for -local")
	fs.StringVar(&C.Out, "out", "out.xyz", "output XYZ file, for -local")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	C.S3 = loadS3Config()

	var err error
	if C.Defaults, err = LoadDefaults(C.DefaultsFile); err != nil {
		return nil, err
	}
	if err := C.validate(); err != nil {
		return nil, err
	}
	return C, nil
}

func (C *Config) validate() error {
	if C.Local == "" && C.URL == "" {
		return errors.New("config: the service URL is required (VIS_URL or -url), unless -local is given")
	}
	if C.CacheSize < 0 {
		return fmt.Errorf("config: negative cache size %d", C.CacheSize)
	}
	if C.XTBCPUs < 1 {
		return fmt.Errorf("config: at least one cpu is needed, got %d", C.XTBCPUs)
	}
	if C.ReconnectMax <= 0 {
		return fmt.Errorf("config: reconnect-max must be positive, got %s", C.ReconnectMax)
	}
	return nil
}

func loadS3Config() S3Config {
	endpoint := strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
	return S3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "chemlive-runs"),
		Prefix:    strings.TrimSpace(os.Getenv("ARCHIVE_S3_PREFIX")),
		UseSSL:    envBool("ARCHIVE_S3_USE_SSL", true),
	}
}

// LoadDefaults reads the run defaults in the YAML file path. The file maps run kinds
// to configurations, and each configuration is read over the built-in one for its
// kind, so it only needs the fields that change. For instance:
//
//	MolecularDynamics:
//	  temperature: 350
//	  ceiling: 500
//	GeomOpt:
//	  optimizer: FIRE
//
// An empty path gives the built-in defaults.
func LoadDefaults(path string) (map[modifier.Kind]modifier.RunConfig, error) {
	ret := make(map[modifier.Kind]modifier.RunConfig, len(modifier.Kinds))
	for _, k := range modifier.Kinds {
		ret[k], _ = modifier.Defaults(k)
	}
	if path == "" {
		return ret, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	var nodes map[modifier.Kind]yaml.Node
	if err := yaml.NewDecoder(f).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	for k, node := range nodes {
		cfg, ok := ret[k]
		if !ok {
			return nil, fmt.Errorf("config: %s: unknown run kind %q", path, k)
		}
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %s: %w", path, k, err)
		}
		cfg.Kind = k
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		ret[k] = cfg
	}
	return ret, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
