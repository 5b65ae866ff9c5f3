package storage

import (
	"encoding"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// DBClockOffset is the persisted clock correction. Offset is in nanoseconds,
// MeasuredAt in Unix milliseconds.
type DBClockOffset struct {
	Offset     int64 `msgpack:"offset"`
	MeasuredAt int64 `msgpack:"measuredAt"`
}

func (o *DBClockOffset) Key() []byte {
	return []byte("stable_time")
}

func (o *DBClockOffset) MarshalBinary() (data []byte, err error) {
	type alias DBClockOffset
	return msgpack.Marshal((*alias)(o))
}

func (o *DBClockOffset) UnmarshalBinary(data []byte) error {
	type alias DBClockOffset
	return msgpack.Unmarshal(data, (*alias)(o))
}
