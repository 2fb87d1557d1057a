// Package models holds the entity shapes shared by every core package:
// the data model described by the server's specification, adapted from the
// Discord-shaped structs this project started from (structs.go).
package models

import (
	"strconv"
)

// Snowflake is a 64-bit sortable ID. It marshals to/from JSON as a decimal
// string so clients that cannot represent a full int64 (e.g. browser
// JavaScript) never lose precision, matching the teacher's convention of
// string-typed Discord IDs but keeping the Go-side value as a real int64
// for arithmetic and comparisons.
type Snowflake int64

// MarshalJSON implements json.Marshaler.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(s), 10))), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either a quoted
// decimal string or a bare JSON number for leniency with older clients.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	v, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return err
	}
	*s = Snowflake(v)
	return nil
}

// String renders the decimal form.
func (s Snowflake) String() string {
	return strconv.FormatInt(int64(s), 10)
}
