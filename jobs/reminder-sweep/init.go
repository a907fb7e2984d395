package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/taskflow-app/taskflow-backend/pkg/db"
	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/conditions"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/delivery"
	"github.com/taskflow-app/taskflow-backend/pkg/utils"
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

	ENV_SMTP_BRIDGE_API_KEY  = "SMTP_BRIDGE_API_KEY"
	ENV_PUSH_GATEWAY_API_KEY = "PUSH_GATEWAY_API_KEY"
	ENV_SMS_GATEWAY_API_KEY  = "SMS_GATEWAY_API_KEY"
	ENV_WEBHOOK_API_KEY      = "WEBHOOK_API_KEY"

	// Duration overrides, e.g. "5m", "90s"
	ENV_SWEEP_CLAIM_DURATION          = "SWEEP_CLAIM_DURATION"
	ENV_SWEEP_CONDITION_RECHECK_DELAY = "SWEEP_CONDITION_RECHECK_DELAY"
)

type gatewayConfig struct {
	URL            string        `json:"url" yaml:"url"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		ReminderDB db.DBConfigYaml `json:"reminder_db" yaml:"reminder_db"`
	} `json:"db_configs" yaml:"db_configs"`

	InstanceIDs []string `json:"instance_ids" yaml:"instance_ids"`

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

	RunTasks struct {
		ProcessDueReminders bool `json:"process_due_reminders" yaml:"process_due_reminders"`
		ProcessEscalations  bool `json:"process_escalations" yaml:"process_escalations"`
		CleanupExpired      bool `json:"cleanup_expired" yaml:"cleanup_expired"`
	} `json:"run_tasks" yaml:"run_tasks"`

	SweepConfigs struct {
		BatchSize             int64         `json:"batch_size" yaml:"batch_size"`
		WorkerCount           int           `json:"worker_count" yaml:"worker_count"`
		ClaimDuration         time.Duration `json:"claim_duration" yaml:"claim_duration"`
		ConditionRecheckDelay time.Duration `json:"condition_recheck_delay" yaml:"condition_recheck_delay"`
		// CronSchedule keeps the job running as a daemon; when empty the job
		// runs the enabled tasks once and exits.
		CronSchedule string `json:"cron_schedule" yaml:"cron_schedule"`
	} `json:"sweep_configs" yaml:"sweep_configs"`
}

var conf config

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

	// init db
	initDBs()

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

	if claimDuration := os.Getenv(ENV_SWEEP_CLAIM_DURATION); claimDuration != "" {
		d, err := utils.ParseDurationString(claimDuration)
		if err != nil {
			panic(err)
		}
		conf.SweepConfigs.ClaimDuration = d
	}

	if recheckDelay := os.Getenv(ENV_SWEEP_CONDITION_RECHECK_DELAY); recheckDelay != "" {
		d, err := utils.ParseDurationString(recheckDelay)
		if err != nil {
			panic(err)
		}
		conf.SweepConfigs.ConditionRecheckDelay = d
	}
}

func initDBs() {
	var err error
	reminderDBService, err = reminderDB.NewReminderDBService(db.DBConfigFromYamlObj(conf.DBConfigs.ReminderDB, conf.InstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Reminder DB", slog.String("error", err.Error()))
		panic(err)
	}
}

// newDispatcherForInstance wires all configured delivery channels. Channels
// without a configured gateway are left out so reminders using them fail with
// a clear transport error instead of a broken HTTP call.
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
