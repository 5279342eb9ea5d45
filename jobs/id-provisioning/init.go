package main

import (
	"os"

	"gopkg.in/yaml.v2"

	"log/slog"

	"github.com/case-framework/enrollment-backend/pkg/db"
	"github.com/case-framework/enrollment-backend/pkg/utils"

	userDB "github.com/case-framework/enrollment-backend/pkg/db/participant-user"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_STUDY_DB_USERNAME            = "STUDY_DB_USERNAME"
	ENV_STUDY_DB_PASSWORD            = "STUDY_DB_PASSWORD"
	ENV_PARTICIPANT_USER_DB_USERNAME = "PARTICIPANT_USER_DB_USERNAME"
	ENV_PARTICIPANT_USER_DB_PASSWORD = "PARTICIPANT_USER_DB_PASSWORD"
)

// ProvisioningTask describes one batch of identifiers to provision. Either
// an input file with one identifier per line or a generated batch of the
// given count.
type ProvisioningTask struct {
	InstanceID      string `json:"instance_id" yaml:"instance_id"`
	SubstudyID      string `json:"substudy_id" yaml:"substudy_id"`
	IdentifiersFile string `json:"identifiers_file" yaml:"identifiers_file"`
	GenerateCount   int    `json:"generate_count" yaml:"generate_count"`
	GeneratePrefix  string `json:"generate_prefix" yaml:"generate_prefix"`
	GenerateLength  int    `json:"generate_length" yaml:"generate_length"`
	OutputFile      string `json:"output_file" yaml:"output_file"`
}

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		ParticipantUserDB db.DBConfigYaml `json:"participant_user_db" yaml:"participant_user_db"`
		StudyDB           db.DBConfigYaml `json:"study_db" yaml:"study_db"`
	} `json:"db_configs" yaml:"db_configs"`

	InstanceIDs []string `json:"instance_ids" yaml:"instance_ids"`

	// identifier registry configs
	IDRegistryConfig struct {
		SubstudyValidation bool `json:"substudy_validation" yaml:"substudy_validation"`
	} `json:"id_registry_config" yaml:"id_registry_config"`

	ProvisioningTasks []ProvisioningTask `json:"provisioning_tasks" yaml:"provisioning_tasks"`
}

var conf config

var (
	participantUserDBService *userDB.ParticipantUserDBService
	studyDBService           *studyDB.StudyDBService
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
	)

	// Override secrets from environment variables
	secretsOverride()

	// init db
	initDBs()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_STUDY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.StudyDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_STUDY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.StudyDB.Password = dbPassword
	}

	if dbUsername := os.Getenv(ENV_PARTICIPANT_USER_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.ParticipantUserDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_PARTICIPANT_USER_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.ParticipantUserDB.Password = dbPassword
	}
}

func initDBs() {
	var err error
	participantUserDBService, err = userDB.NewParticipantUserDBService(db.DBConfigFromYamlObj(conf.DBConfigs.ParticipantUserDB, conf.InstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Participant User DB", slog.String("error", err.Error()))
		panic(err)
	}

	studyDBService, err = studyDB.NewStudyDBService(db.DBConfigFromYamlObj(conf.DBConfigs.StudyDB, conf.InstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Study DB", slog.String("error", err.Error()))
		panic(err)
	}
}
