package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// WithExpiresIn sets both the absolute expiry and a human "24 hours" style text.
func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		WithExpiresAt(time.Now().Add(dur))(d)
		d.ExpiresInText = humanDuration(dur)
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return itoa(n) + " " + unit + "s"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// NewBaseEmailData fills common fields, then applies options.
func NewBaseEmailData(appName, typ, recipient string, opts ...Option) EmailData {
	d := EmailData{
		AppName:        appName,
		RecipientEmail: recipient,
		Type:           typ,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewResetPasswordData(appName, recipient, resetURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(resetURL)}, opts...)
	d := NewBaseEmailData(appName, ResetPassword, recipient, opts...)
	return ToMap(d)
}
