package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"gigacode"`
}

type MySqlConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	HostName string `yaml:"hostname" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"gigacode"`
	Prefix   string `yaml:"prefix" env-default:""`
}

// MailConfig holds the Gmail OAuth client and the labels driving ingestion.
type MailConfig struct {
	Enabled        bool   `yaml:"enabled" env-default:"false"`
	ClientID       string `yaml:"client_id" env:"GMAIL_CLIENT_ID" env-default:""`
	ClientSecret   string `yaml:"client_secret" env:"GMAIL_CLIENT_SECRET" env-default:""`
	RefreshToken   string `yaml:"refresh_token" env:"GMAIL_REFRESH_TOKEN" env-default:""`
	Label          string `yaml:"label" env-default:"00_ギガ活"`
	ProcessedLabel string `yaml:"processed_label" env-default:"00_ギガ活/処理済み"`
}

type LineConfig struct {
	ChannelSecret  string `yaml:"channel_secret" env:"LINE_CHANNEL_SECRET" env-default:""`
	AccessToken    string `yaml:"access_token" env:"LINE_BOT_ACCESS_TOKEN" env-default:""`
	NotifyToken    string `yaml:"notify_token" env:"LINE_NOTIFY_TOKEN" env-default:""`
	ApiEndpoint    string `yaml:"api_endpoint" env-default:"https://api.line.me"`
	NotifyEndpoint string `yaml:"notify_endpoint" env-default:"https://notify-api.line.me/api/notify"`
}

type TelegramConfig struct {
	Enabled       bool    `yaml:"enabled" env-default:"false"`
	ApiKey        string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	NotifyChatIds []int64 `yaml:"notify_chat_ids"`
}

type ScheduleConfig struct {
	Enabled           bool   `yaml:"enabled" env-default:"false"`
	IngestIntervalMin int    `yaml:"ingest_interval_min" env-default:"30"`
	ExpiryCron        string `yaml:"expiry_cron" env-default:"0 9 * * *"`
}

type Config struct {
	Env       string         `yaml:"env" env-default:"local"`
	Location  string         `yaml:"location" env-default:"Asia/Tokyo"`
	Listen    Listen         `yaml:"listen"`
	Mongo     MongoConfig    `yaml:"mongo"`
	MySql     MySqlConfig    `yaml:"mysql"`
	Mail      MailConfig     `yaml:"mail"`
	Line      LineConfig     `yaml:"line"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Schedule  ScheduleConfig `yaml:"schedule"`
	AllowList []string       `yaml:"allow_list" env:"ALLOW_LIST" env-separator:","`
	ApiTokens []string       `yaml:"api_tokens" env:"API_TOKENS" env-separator:","`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
