package version

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is a count of seconds since the Unix epoch.
type Timestamp uint32

// EndOfTime is greater than every timestamp at which a real version could have been created. A
// Window for the last known version of an entity ends here.
const EndOfTime = Timestamp(math.MaxUint32)

// TimestampOf converts t to a Timestamp, truncating to whole seconds.
//
// Instants before the epoch or at or beyond EndOfTime are not representable.
func TimestampOf(t time.Time) (Timestamp, error) {
	secs := t.Unix()
	if secs < 0 || secs >= int64(EndOfTime) {
		return 0, fmt.Errorf("time %s lies outside the representable timestamp range", t.Format(time.RFC3339))
	}
	return Timestamp(secs), nil
}

// ParseTimestamp accepts either RFC 3339 text or a decimal count of seconds since the epoch.
func ParseTimestamp(s string) (Timestamp, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		if Timestamp(n) == EndOfTime {
			return 0, fmt.Errorf("timestamp %q is reserved for the end of time", s)
		}
		return Timestamp(n), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is neither RFC 3339 nor a count of seconds", s)
	}
	return TimestampOf(t)
}

// Time converts the timestamp to UTC time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t Timestamp) String() string {
	if t == EndOfTime {
		return "end-of-time"
	}
	return t.Time().Format(time.RFC3339)
}

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Timestamp) UnmarshalText(b []byte) error {
	if string(b) == "end-of-time" {
		*t = EndOfTime
		return nil
	}
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
