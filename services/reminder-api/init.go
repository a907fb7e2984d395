package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/taskflow-app/taskflow-backend/pkg/apihelpers"
	"github.com/taskflow-app/taskflow-backend/pkg/db"
	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/conditions"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/delivery"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/sweep"
	"github.com/taskflow-app/taskflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	reminderDB "github.com/taskflow-app/taskflow-backend/pkg/db/reminders"
	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_REMINDER_DB_USERNAME = "REMINDER_DB_USERNAME"
	ENV_REMINDER_DB_PASSWORD = "REMINDER_DB_PASSWORD"

	ENV_REMINDER_API_KEYS    = "REMINDER_API_KEYS"
	ENV_SMTP_BRIDGE_API_KEY  = "SMTP_BRIDGE_API_KEY"
	ENV_PUSH_GATEWAY_API_KEY = "PUSH_GATEWAY_API_KEY"
	ENV_SMS_GATEWAY_API_KEY  = "SMS_GATEWAY_API_KEY"
	ENV_WEBHOOK_API_KEY      = "WEBHOOK_API_KEY"
)

type gatewayConfig struct {
	URL            string        `json:"url" yaml:"url"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

type ReminderApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	AllowedInstanceIDs []string `json:"allowed_instance_ids" yaml:"allowed_instance_ids"`

	// API keys for service to service calls
	ApiKeys []string `json:"api_keys" yaml:"api_keys"`

	// DB configs
	DBConfigs struct {
		ReminderDB db.DBConfigYaml `json:"reminder_db" yaml:"reminder_db"`
	} `json:"db_configs" yaml:"db_configs"`

	DeliveryConfigs struct {
		SmtpBridge  gatewayConfig             `json:"smtp_bridge" yaml:"smtp_bridge"`
		PushGateway gatewayConfig             `json:"push_gateway" yaml:"push_gateway"`
		SMSGateway  delivery.SMSGatewayConfig `json:"sms_gateway" yaml:"sms_gateway"`
		Webhook     struct {
			APIKey         string        `json:"api_key" yaml:"api_key"`
			RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
		} `json:"webhook" yaml:"webhook"`
		SendTimeout time.Duration `json:"send_timeout" yaml:"send_timeout"`
	} `json:"delivery_configs" yaml:"delivery_configs"`

	SweepConfigs struct {
		BatchSize             int64         `json:"batch_size" yaml:"batch_size"`
		WorkerCount           int           `json:"worker_count" yaml:"worker_count"`
		ClaimDuration         time.Duration `json:"claim_duration" yaml:"claim_duration"`
		ConditionRecheckDelay time.Duration `json:"condition_recheck_delay" yaml:"condition_recheck_delay"`
	} `json:"sweep_configs" yaml:"sweep_configs"`
}

var (
	reminderDBService *reminderDB.ReminderDBService
	predicateRegistry *conditions.PredicateRegistry
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
		conf.Logging.IncludeBuildInfo,
	)

	// Override secrets from environment variables
	secretsOverride()

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init reminder service
	reminders.Init(reminderDBService)

	predicateRegistry = conditions.NewPredicateRegistry()
}

func secretsOverride() {
	// Override secrets from environment variables

	if dbUsername := os.Getenv(ENV_REMINDER_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.ReminderDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_REMINDER_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.ReminderDB.Password = dbPassword
	}

	if apiKeys := os.Getenv(ENV_REMINDER_API_KEYS); apiKeys != "" {
		conf.ApiKeys = strings.Split(apiKeys, ",")
	}

	if apiKey := os.Getenv(ENV_SMTP_BRIDGE_API_KEY); apiKey != "" {
		conf.DeliveryConfigs.SmtpBridge.APIKey = apiKey
	}

	if apiKey := os.Getenv(ENV_PUSH_GATEWAY_API_KEY); apiKey != "" {
		conf.DeliveryConfigs.PushGateway.APIKey = apiKey
	}

	if apiKey := os.Getenv(ENV_SMS_GATEWAY_API_KEY); apiKey != "" {
		conf.DeliveryConfigs.SMSGateway.APIKey = apiKey
	}

	if apiKey := os.Getenv(ENV_WEBHOOK_API_KEY); apiKey != "" {
		conf.DeliveryConfigs.Webhook.APIKey = apiKey
	}
}

func initDBs() {
	var err error
	reminderDBService, err = reminderDB.NewReminderDBService(db.DBConfigFromYamlObj(conf.DBConfigs.ReminderDB, conf.AllowedInstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Reminder DB", slog.String("error", err.Error()))
		panic(err)
	}
}

func newSweepForInstance(instanceID string) *sweep.Sweep {
	return sweep.New(
		reminderDBService,
		newDispatcherForInstance(instanceID),
		predicateRegistry,
		sweep.Config{
			BatchSize:             conf.SweepConfigs.BatchSize,
			WorkerCount:           conf.SweepConfigs.WorkerCount,
			ClaimDuration:         conf.SweepConfigs.ClaimDuration,
			ConditionRecheckDelay: conf.SweepConfigs.ConditionRecheckDelay,
		},
	)
}

func newDispatcherForInstance(instanceID string) *delivery.Dispatcher {
	transports := map[string]delivery.Transport{
		remindersTypes.CHANNEL_IN_APP: delivery.NewInAppTransport(instanceID, reminderDBService, nil),
	}

	if conf.DeliveryConfigs.SmtpBridge.URL != "" {
		transports[remindersTypes.CHANNEL_EMAIL] = delivery.NewEmailTransport(&httpclient.ClientConfig{
			RootURL: conf.DeliveryConfigs.SmtpBridge.URL,
			APIKey:  conf.DeliveryConfigs.SmtpBridge.APIKey,
			Timeout: conf.DeliveryConfigs.SmtpBridge.RequestTimeout,
		})
	}

	if conf.DeliveryConfigs.PushGateway.URL != "" {
		transports[remindersTypes.CHANNEL_PUSH] = delivery.NewPushTransport(&httpclient.ClientConfig{
			RootURL: conf.DeliveryConfigs.PushGateway.URL,
			APIKey:  conf.DeliveryConfigs.PushGateway.APIKey,
			Timeout: conf.DeliveryConfigs.PushGateway.RequestTimeout,
		})
	}

	if conf.DeliveryConfigs.SMSGateway.URL != "" {
		transports[remindersTypes.CHANNEL_SMS] = delivery.NewSMSTransport(&conf.DeliveryConfigs.SMSGateway)
	}

	transports[remindersTypes.CHANNEL_WEBHOOK] = delivery.NewWebhookTransport(
		conf.DeliveryConfigs.Webhook.APIKey,
		conf.DeliveryConfigs.Webhook.RequestTimeout,
	)

	return delivery.NewDispatcher(transports, nil, nil, conf.DeliveryConfigs.SendTimeout)
}
