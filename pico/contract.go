package pico

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ContractVersion is bumped whenever a published name or its meaning changes.
const ContractVersion = 1

// Contract is what one stage publishes to the other: the regions, the
// exported symbols and the initial stack pointer, under a version.
type Contract struct {
	Version uint32
	Regions []Region
	Symbols []Symbol
	Stack   uint32
}

// Contract returns the table's published contract.
func (t *Table) Contract() *Contract {
	return &Contract{
		Version: ContractVersion,
		Regions: t.Regions(),
		Symbols: t.exports.Symbols(),
		Stack:   t.stack,
	}
}

const (
	fieldVersion protowire.Number = 1
	fieldRegion  protowire.Number = 2
	fieldSymbol  protowire.Number = 3
	fieldStack   protowire.Number = 4
)

// EncodeContract serialises c in protobuf wire format.
func EncodeContract(c *Contract) []byte {
	var b []byte
	b = appendVarint(b, fieldVersion, uint64(c.Version))
	for i := range c.Regions {
		b = protowire.AppendTag(b, fieldRegion, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeRegion(&c.Regions[i]))
	}
	for i := range c.Symbols {
		b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSymbol(&c.Symbols[i]))
	}
	b = appendVarint(b, fieldStack, uint64(c.Stack))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func encodeRegion(r *Region) []byte {
	var b []byte
	b = appendString(b, 1, r.Name)
	b = appendVarint(b, 2, uint64(r.Class))
	b = appendVarint(b, 3, uint64(r.Origin))
	b = appendVarint(b, 4, uint64(r.Length))
	b = appendVarint(b, 5, uint64(r.Perm))
	return b
}

func encodeSymbol(s *Symbol) []byte {
	var b []byte
	b = appendString(b, 1, s.Name)
	b = appendVarint(b, 2, uint64(s.Addr))
	b = appendString(b, 3, s.Region)
	b = appendVarint(b, 4, protowire.EncodeBool(s.Clamped))
	return b
}

var errContractType = errors.New("contract: unexpected wire type")

// field is one decoded key/value; exactly one of v or raw is set by type.
type field struct {
	num protowire.Number
	v   uint64
	raw []byte
}

// fields splits a message into its fields, skipping unknown wire types.
func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n >= 0 {
				b = b[n:]
				continue
			}
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

// DecodeContract parses the output of EncodeContract.
func DecodeContract(b []byte) (*Contract, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}
	c := &Contract{}
	for _, f := range fs {
		switch f.num {
		case fieldVersion:
			c.Version = uint32(f.v)
		case fieldStack:
			c.Stack = uint32(f.v)
		case fieldRegion:
			if f.raw == nil {
				return nil, errContractType
			}
			r, err := decodeRegion(f.raw)
			if err != nil {
				return nil, err
			}
			c.Regions = append(c.Regions, r)
		case fieldSymbol:
			if f.raw == nil {
				return nil, errContractType
			}
			s, err := decodeSymbol(f.raw)
			if err != nil {
				return nil, err
			}
			c.Symbols = append(c.Symbols, s)
		}
	}
	if c.Version != ContractVersion {
		return nil, fmt.Errorf("contract: version %d, want %d", c.Version, ContractVersion)
	}
	return c, nil
}

func decodeRegion(b []byte) (Region, error) {
	var r Region
	fs, err := fields(b)
	if err != nil {
		return r, fmt.Errorf("contract region: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			r.Name = string(f.raw)
		case 2:
			r.Class = Class(f.v)
		case 3:
			r.Origin = uint32(f.v)
		case 4:
			r.Length = uint32(f.v)
		case 5:
			r.Perm = Perm(f.v)
		}
	}
	return r, nil
}

func decodeSymbol(b []byte) (Symbol, error) {
	var s Symbol
	fs, err := fields(b)
	if err != nil {
		return s, fmt.Errorf("contract symbol: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			s.Name = string(f.raw)
		case 2:
			s.Addr = uint32(f.v)
		case 3:
			s.Region = string(f.raw)
		case 4:
			s.Clamped = protowire.DecodeBool(f.v)
		}
	}
	return s, nil
}

// Digest identifies the contract. Two independently built stages agree
// on the memory map iff their digests are equal.
func (c *Contract) Digest() []byte {
	return sha256Sum(EncodeContract(c))
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}
