package app

import (
	"github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/database"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/mail"
)

// DatabaseConfigFor maps the loaded configuration onto database connection options.
func DatabaseConfigFor(cfg *Config) database.Config {
	return database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
	}
}

// JWTConfigFor maps the loaded configuration onto token signing options.
func JWTConfigFor(cfg *Config) auth.JWTConfig {
	return auth.JWTConfig{
		AccessSecret:    cfg.Auth.JWT.AccessSecret,
		RefreshSecret:   cfg.Auth.JWT.RefreshSecret,
		Issuer:          cfg.Auth.JWT.Issuer,
		AccessTokenTTL:  cfg.Auth.JWT.AccessTTL,
		RefreshTokenTTL: cfg.Auth.JWT.RefreshTTL,
	}
}

// OTPConfigFor maps the loaded configuration onto one-time code options.
func OTPConfigFor(cfg *Config) auth.OTPConfig {
	return auth.OTPConfig{
		TTL: cfg.Auth.OTP.TTL,
	}
}

// SMTPSettingsFor maps the loaded configuration onto mailer settings.
func SMTPSettingsFor(cfg *Config) mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	}
}
