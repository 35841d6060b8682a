/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatter for the Akaylee Explorer. Colored, single-line output
with a short prefix per exploration event and sorted structured fields.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ExplorerFormatter renders log entries for terminal reading
type ExplorerFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *ExplorerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var out strings.Builder

	if f.Timestamp {
		f.write(&out, 36, entry.Time.Format("2006-01-02 15:04:05.000"))
		out.WriteByte(' ')
	}

	f.write(&out, levelColor(entry.Level), strings.ToUpper(entry.Level.String()))
	out.WriteByte(' ')

	if prefix := eventPrefix(entry.Message); prefix != "" {
		f.write(&out, 35, "["+prefix+"]")
		out.WriteByte(' ')
	}

	if f.Caller && entry.HasCaller() {
		f.write(&out, 33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line))
		out.WriteByte(' ')
	}

	out.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.WriteByte(' ')
			if f.Colors {
				out.WriteString(fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", k, formatValue(k, entry.Data[k])))
			} else {
				out.WriteString(k + "=" + formatValue(k, entry.Data[k]))
			}
		}
	}

	out.WriteByte('\n')
	return []byte(out.String()), nil
}

func (f *ExplorerFormatter) write(out *strings.Builder, color int, text string) {
	if f.Colors {
		out.WriteString(fmt.Sprintf("\033[%dm%s\033[0m", color, text))
		return
	}
	out.WriteString(text)
}

func levelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32
	case logrus.WarnLevel:
		return 33
	case logrus.ErrorLevel:
		return 31
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35
	default:
		return 37
	}
}

// eventPrefix tags well-known exploration messages
func eventPrefix(message string) string {
	switch {
	case strings.HasPrefix(message, "State "):
		return "STATE"
	case strings.HasPrefix(message, "Transition"):
		return "EDGE"
	case strings.HasPrefix(message, "Interaction"):
		return "ACTION"
	case strings.HasPrefix(message, "Statistics"):
		return "STATS"
	case strings.Contains(message, "Explorer"):
		return "EXPLORER"
	case strings.Contains(message, "Engine") || strings.Contains(message, "session"):
		return "ENGINE"
	default:
		return ""
	}
}

func formatValue(key string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case float64:
		return fmt.Sprintf("%.3f", v)
	case string:
		if strings.HasSuffix(key, "_id") && len(v) > 8 {
			return v[:8]
		}
		if len(v) > 60 {
			return v[:60] + "..."
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
