package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/AlexZinkM/credlink/internal/common"
)

// Record header flags
const (
	flagMB = 0x80 // message begin
	flagME = 0x40 // message end
	flagCF = 0x20 // chunked
	flagSR = 0x10 // short record
	flagIL = 0x08 // ID length present

	tnfMask = 0x07
)

// TNF is the type name format of a record
type TNF byte

const (
	TNFEmpty       TNF = 0x00
	TNFWellKnown   TNF = 0x01
	TNFMedia       TNF = 0x02
	TNFAbsoluteURI TNF = 0x03
	TNFExternal    TNF = 0x04
	TNFUnknown     TNF = 0x05
	TNFUnchanged   TNF = 0x06
)

// RTDText is the well-known type of Text records
const RTDText = "T"

// Record is one NDEF record
type Record struct {
	TNF     TNF
	Type    []byte
	ID      []byte
	Payload []byte
}

// IsText reports whether r is a well-known Text record
func (r Record) IsText() bool {
	return r.TNF == TNFWellKnown && string(r.Type) == RTDText
}

// Message is an ordered list of records
type Message struct {
	Records []Record
}

// ErrEmptyMessage is returned when a message has no records
var ErrEmptyMessage = errors.New("ndef message has no records")

// NewTextRecord returns a well-known Text record holding text
func NewTextRecord(text, lang string, utf16 bool) (Record, error) {
	payload, err := EncodeText(text, lang, utf16)
	if err != nil {
		return Record{}, err
	}
	return Record{TNF: TNFWellKnown, Type: []byte(RTDText), Payload: payload}, nil
}

// First returns the first record of the message
func (m Message) First() (Record, error) {
	if len(m.Records) == 0 {
		return Record{}, ErrEmptyMessage
	}
	return m.Records[0], nil
}

// ParseMessage parses a raw NDEF message as read from a tag.
// Chunked records are not supported.
func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	pos := 0

	for {
		if pos >= len(raw) {
			if len(msg.Records) == 0 {
				return Message{}, ErrEmptyMessage
			}
			return Message{}, decodingErrorf("message ends without a record marked as last")
		}

		header := raw[pos]
		if len(msg.Records) == 0 && header&flagMB == 0 {
			return Message{}, decodingErrorf("first record is not marked as message begin")
		}
		if header&flagCF != 0 {
			return Message{}, decodingErrorf("chunked records are not supported")
		}
		pos++

		typeLen, err := readLen(raw, &pos, 1)
		if err != nil {
			return Message{}, err
		}

		lenBytes := 4
		if header&flagSR != 0 {
			lenBytes = 1
		}
		payloadLen, err := readLen(raw, &pos, lenBytes)
		if err != nil {
			return Message{}, err
		}

		idLen := 0
		if header&flagIL != 0 {
			if idLen, err = readLen(raw, &pos, 1); err != nil {
				return Message{}, err
			}
		}

		rec := Record{TNF: TNF(header & tnfMask)}
		if rec.Type, err = readBytes(raw, &pos, typeLen); err != nil {
			return Message{}, err
		}
		if rec.ID, err = readBytes(raw, &pos, idLen); err != nil {
			return Message{}, err
		}
		if rec.Payload, err = readBytes(raw, &pos, payloadLen); err != nil {
			return Message{}, err
		}
		msg.Records = append(msg.Records, rec)

		if header&flagME != 0 {
			return msg, nil
		}
	}
}

// MarshalBinary encodes the message in NDEF wire format
func (m Message) MarshalBinary() ([]byte, error) {
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	var out []byte
	for i, rec := range m.Records {
		if len(rec.Type) > math.MaxUint8 || len(rec.ID) > math.MaxUint8 {
			return nil, fmt.Errorf("record %d: type or id longer than 255 bytes", i)
		}
		if uint64(len(rec.Payload)) > math.MaxUint32 {
			return nil, fmt.Errorf("record %d: payload too large", i)
		}

		header := byte(rec.TNF) & tnfMask
		if i == 0 {
			header |= flagMB
		}
		if i == len(m.Records)-1 {
			header |= flagME
		}
		short := len(rec.Payload) <= math.MaxUint8
		if short {
			header |= flagSR
		}
		if len(rec.ID) > 0 {
			header |= flagIL
		}

		out = append(out, header, byte(len(rec.Type)))
		if short {
			out = append(out, byte(len(rec.Payload)))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(len(rec.Payload)))
		}
		if len(rec.ID) > 0 {
			out = append(out, byte(len(rec.ID)))
		}
		out = append(out, rec.Type...)
		out = append(out, rec.ID...)
		out = append(out, rec.Payload...)
	}
	return out, nil
}

// ReadDump accepts a tag dump either as raw bytes or as a hex dump
func ReadDump(data []byte) ([]byte, error) {
	if common.LooksLikeHex(data) {
		raw, err := common.DecodeHexDump(string(data))
		if err != nil {
			return nil, decodingErrorf("invalid hex dump: %v", err)
		}
		return raw, nil
	}
	return data, nil
}

func readLen(raw []byte, pos *int, n int) (int, error) {
	if *pos+n > len(raw) {
		return 0, decodingErrorf("truncated record header at offset %d", *pos)
	}
	var v int
	for _, b := range raw[*pos : *pos+n] {
		v = v<<8 | int(b)
	}
	*pos += n
	return v, nil
}

func readBytes(raw []byte, pos *int, n int) ([]byte, error) {
	if n > len(raw)-*pos {
		return nil, decodingErrorf("record field of %d bytes overruns message at offset %d", n, *pos)
	}
	out := raw[*pos : *pos+n]
	*pos += n
	return out, nil
}
