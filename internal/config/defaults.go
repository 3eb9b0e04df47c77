package config

const (
	defaultConfigPath                 = "~/.config/followup/config.toml"
	defaultStateDir                   = "~/.meeting-followup"
	defaultGranolaDir                 = "~/Library/Application Support/Granola"
	defaultAuthFileName               = "supabase.json"
	defaultGranolaBaseURL             = "https://api.granola.ai"
	defaultGranolaAuthURL             = "https://api.workos.com/user_management/authenticate"
	defaultGranolaTimeoutSeconds      = 30
	defaultSettleDelaySeconds         = 10
	defaultMaxMeetingAgeHours         = 3
	defaultPollIntervalSeconds        = 30
	defaultPollMaxWaitSeconds         = 300
	defaultMinContentChars            = 50
	defaultMaxContentChars            = 20000
	defaultProcessedLimit             = 200
	defaultDeferredLimit              = 20
	defaultLLMProvider                = "anthropic"
	defaultAnthropicBaseURL           = "https://api.anthropic.com/v1/messages"
	defaultOpenRouterBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                   = "claude-sonnet-4-5"
	defaultLLMMaxTokens               = 1500
	defaultLLMTimeoutSeconds          = 60
	defaultLLMTitle                   = "Meeting Follow-Up"
	defaultDraftSubject               = "re: our call today"
	defaultGmailCredentialsFile       = "~/.gmail-mcp/credentials.json"
	defaultGmailTokenFile             = "~/.gmail-mcp/token.json"
	defaultCorrespondenceLookbackDays = 30
	defaultCorrespondenceLimit        = 5
	defaultNotifyRequestTimeout       = 10
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
	defaultHistoryRetentionDays       = 90
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			GranolaDir: defaultGranolaDir,
		},
		Granola: Granola{
			BaseURL:        defaultGranolaBaseURL,
			AuthURL:        defaultGranolaAuthURL,
			TimeoutSeconds: defaultGranolaTimeoutSeconds,
		},
		Pipeline: Pipeline{
			SettleDelaySeconds:        defaultSettleDelaySeconds,
			MaxMeetingAgeHours:        defaultMaxMeetingAgeHours,
			PollIntervalSeconds:       defaultPollIntervalSeconds,
			PollMaxWaitSeconds:        defaultPollMaxWaitSeconds,
			MinContentChars:           defaultMinContentChars,
			MaxContentChars:           defaultMaxContentChars,
			RequireSpeakerAttribution: true,
			ProcessedLimit:            defaultProcessedLimit,
			DeferredLimit:             defaultDeferredLimit,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Model:          defaultLLMModel,
			MaxTokens:      defaultLLMMaxTokens,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Subject:        defaultDraftSubject,
		},
		Gmail: Gmail{
			Enabled:                    true,
			CredentialsFile:            defaultGmailCredentialsFile,
			TokenFile:                  defaultGmailTokenFile,
			CorrespondenceLookbackDays: defaultCorrespondenceLookbackDays,
			CorrespondenceLimit:        defaultCorrespondenceLimit,
		},
		Notifications: Notifications{
			Desktop:        true,
			RequestTimeout: defaultNotifyRequestTimeout,
			DraftReady:     true,
			Deferred:       true,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
	}
}
