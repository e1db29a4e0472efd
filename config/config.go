package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"NodelistDB/logger"
)

const (
	DefaultPromote   = 16
	DefaultCachePage = 60
)

/*
[nodelist]
dir             = /fd/nodelist
extension       = 123
country_code    = 44
swedish         = false
legacy_revision = false

[cache]
address_pages      = 60
user_pages         = 60
record_cache_items = 1024

[tree]
address_promote = 16
user_promote    = 16
phone_promote   = 16
use_dupes       = true

[semaphore]
dir  =
task = 0

[log]
level      = info
info_path  =
error_path =
*/
type Cfg struct {
	Raw *ini.File

	// nodelist
	Dir            string `default:"." ini:"dir"`
	Extension      string `default:"PVT" ini:"extension"`
	CountryCode    uint16 `default:"0" ini:"country_code"`
	Swedish        bool   `default:"false" ini:"swedish"`
	LegacyRevision bool   `default:"false" ini:"legacy_revision"`

	// cache
	AddressCachePages int `default:"60" ini:"address_pages"`
	UserCachePages    int `default:"60" ini:"user_pages"`
	RecordCacheItems  int `default:"1024" ini:"record_cache_items"`

	// tree
	AddressPromote int  `default:"16" ini:"address_promote"`
	UserPromote    int  `default:"16" ini:"user_promote"`
	PhonePromote   int  `default:"16" ini:"phone_promote"`
	UseDupes       bool `default:"true" ini:"use_dupes"`

	// semaphore, empty dir disables marker files
	SemaphoreDir string `default:"" ini:"dir"`
	Task         uint16 `default:"0" ini:"task"`

	// log
	LogLevel     string `default:"info" ini:"level"`
	LogInfoPath  string `default:"" ini:"info_path"`
	LogErrorPath string `default:"" ini:"error_path"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:               ini.Empty(),
		Dir:               ".",
		Extension:         "PVT",
		AddressCachePages: DefaultCachePage,
		UserCachePages:    DefaultCachePage,
		RecordCacheItems:  1024,
		AddressPromote:    DefaultPromote,
		UserPromote:       DefaultPromote,
		PhonePromote:      DefaultPromote,
		UseDupes:          true,
		LogLevel:          "info",
	}
}

// Load reads an ini file over the defaults. Missing keys keep their default.
func Load(path string) (*Cfg, error) {
	cfg := NewCfg()
	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg.Raw = iniFile

	cfg.parseNodelistCfg(iniFile.Section("nodelist"))
	cfg.parseCacheCfg(iniFile.Section("cache"))
	cfg.parseTreeCfg(iniFile.Section("tree"))
	cfg.parseSemaphoreCfg(iniFile.Section("semaphore"))
	cfg.parseLogCfg(iniFile.Section("log"))

	if !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(filepath.Dir(path), cfg.Dir)
	}
	if cfg.SemaphoreDir != "" && !filepath.IsAbs(cfg.SemaphoreDir) {
		cfg.SemaphoreDir = filepath.Join(filepath.Dir(path), cfg.SemaphoreDir)
	}
	cfg.Normalize()
	return cfg, nil
}

func (cfg *Cfg) parseNodelistCfg(section *ini.Section) {
	cfg.Dir = section.Key("dir").MustString(cfg.Dir)
	cfg.Extension = strings.ToUpper(section.Key("extension").MustString(cfg.Extension))
	cfg.CountryCode = uint16(section.Key("country_code").MustUint(uint(cfg.CountryCode)))
	cfg.Swedish = section.Key("swedish").MustBool(cfg.Swedish)
	cfg.LegacyRevision = section.Key("legacy_revision").MustBool(cfg.LegacyRevision)
}

func (cfg *Cfg) parseCacheCfg(section *ini.Section) {
	cfg.AddressCachePages = section.Key("address_pages").MustInt(cfg.AddressCachePages)
	cfg.UserCachePages = section.Key("user_pages").MustInt(cfg.UserCachePages)
	cfg.RecordCacheItems = section.Key("record_cache_items").MustInt(cfg.RecordCacheItems)
}

func (cfg *Cfg) parseTreeCfg(section *ini.Section) {
	cfg.AddressPromote = section.Key("address_promote").MustInt(cfg.AddressPromote)
	cfg.UserPromote = section.Key("user_promote").MustInt(cfg.UserPromote)
	cfg.PhonePromote = section.Key("phone_promote").MustInt(cfg.PhonePromote)
	cfg.UseDupes = section.Key("use_dupes").MustBool(cfg.UseDupes)
}

func (cfg *Cfg) parseSemaphoreCfg(section *ini.Section) {
	cfg.SemaphoreDir = section.Key("dir").MustString(cfg.SemaphoreDir)
	cfg.Task = uint16(section.Key("task").MustUint(uint(cfg.Task)))
}

func (cfg *Cfg) parseLogCfg(section *ini.Section) {
	cfg.LogLevel = section.Key("level").MustString(cfg.LogLevel)
	cfg.LogInfoPath = section.Key("info_path").MustString(cfg.LogInfoPath)
	cfg.LogErrorPath = section.Key("error_path").MustString(cfg.LogErrorPath)
}

// Normalize pulls out-of-range values back to their defaults.
func (cfg *Cfg) Normalize() {
	for _, p := range []*int{&cfg.AddressPromote, &cfg.UserPromote, &cfg.PhonePromote} {
		if *p < 1 || *p > 31 {
			logger.Warnf("promote record %d out of range 1..31, using %d", *p, DefaultPromote)
			*p = DefaultPromote
		}
	}
	if len(cfg.Extension) > 3 {
		logger.Warnf("nodelist extension %q longer than 3 chars, truncated", cfg.Extension)
		cfg.Extension = cfg.Extension[:3]
	}
	if cfg.RecordCacheItems < 0 {
		cfg.RecordCacheItems = 0
	}
}

// LogConfig maps the [log] section onto the logger package.
func (cfg *Cfg) LogConfig() logger.LogConfig {
	return logger.LogConfig{
		ErrorLogPath: cfg.LogErrorPath,
		InfoLogPath:  cfg.LogInfoPath,
		LogLevel:     cfg.LogLevel,
	}
}
