// engine configuration, loaded from config.yml in the data dir.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceToggle struct {
	Enabled bool `yaml:"enabled"`
}

type EmailSource struct {
	Enabled          bool     `yaml:"enabled"`
	IMAPHost         string   `yaml:"imap_host"`
	IMAPPort         int      `yaml:"imap_port"`
	Username         string   `yaml:"username"`
	Mailbox          string   `yaml:"mailbox"`
	SearchSubjectAny []string `yaml:"search_subject_any"`
	MaxMessages      int      `yaml:"max_messages"`
}

// Profile is the applicant profile used to fill application forms and
// generate cover letters.
type Profile struct {
	FullName     string `yaml:"full_name"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	City         string `yaml:"city"`
	LinkedIn     string `yaml:"linkedin"`
	GitHub       string `yaml:"github"`
	Website      string `yaml:"website"`
	CVPath       string `yaml:"cv_path"`
	NoticePeriod string `yaml:"notice_period"`
	YearsOfExp   string `yaml:"years_of_experience"`
	Education    string `yaml:"education"`
	Summary      string `yaml:"summary"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Profile Profile `yaml:"profile"`

	Search struct {
		Roles    []string `yaml:"roles"`
		Regions  []string `yaml:"regions"`
		MaxPages int      `yaml:"max_pages"`
	} `yaml:"search"`

	Sources struct {
		Adzuna    SourceToggle `yaml:"adzuna"`
		Remotive  SourceToggle `yaml:"remotive"`
		RemoteOK  SourceToggle `yaml:"remoteok"`
		Reed      SourceToggle `yaml:"reed"`
		TheMuse   SourceToggle `yaml:"themuse"`
		JobAlerts EmailSource  `yaml:"jobalerts"`
	} `yaml:"sources"`

	Relevance struct {
		MinScore int      `yaml:"min_score"`
		Keywords []string `yaml:"keywords"`
		Excludes []string `yaml:"excludes"`
		Boosts   []string `yaml:"boosts"`
	} `yaml:"relevance"`

	Dedup struct {
		CompanySuffixes []string `yaml:"company_suffixes"`
	} `yaml:"dedup"`

	Apply struct {
		MaxPerRun       int     `yaml:"max_per_run"`
		MinDelaySeconds float64 `yaml:"min_delay_seconds"`
		MaxAttempts     int     `yaml:"max_attempts"`
		AnswerTimeoutS  int     `yaml:"answer_timeout_seconds"`
		StepTimeoutS    int     `yaml:"step_timeout_seconds"`
		SessionDomain   string  `yaml:"session_domain"`
		SessionCookie   string  `yaml:"session_cookie"`
		SessionCheckURL string  `yaml:"session_check_url"`
	} `yaml:"apply"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) AnswerTimeout() time.Duration {
	if c.Apply.AnswerTimeoutS <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.Apply.AnswerTimeoutS) * time.Second
}

func (c Config) StepTimeout() time.Duration {
	if c.Apply.StepTimeoutS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Apply.StepTimeoutS) * time.Second
}

func (c Config) MinApplyDelay() time.Duration {
	if c.Apply.MinDelaySeconds <= 0 {
		return 4 * time.Second
	}
	return time.Duration(c.Apply.MinDelaySeconds * float64(time.Second))
}
