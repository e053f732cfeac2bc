package types

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// TypeKey is a deterministic identity for any catalog entity: types,
// functions, template parameter slots and template instances.
// Equal names (or signatures) always hash to the same key, so a key can be
// computed before the entity it names is registered.
type TypeKey uint64

// NoKey marks the absence of a key.
const NoKey TypeKey = 0

// IsValid reports whether k names something.
func (k TypeKey) IsValid() bool { return k != NoKey }

func (k TypeKey) String() string {
	return fmt.Sprintf("%#018x", uint64(k))
}

// Domain constants keep keys of different entity families apart even when
// they share a name.
const (
	mixSep         uint64 = 0x4bc94d6bd06053ad
	mixType        uint64 = 0x2fac10b63a6cc57c
	mixFunction    uint64 = 0x5ea77ffbcdf5f302
	mixMethod      uint64 = 0x7d3c8b4a92e15f6d
	mixConstructor uint64 = 0x9a7f3d5e2b8c4601
	mixModifier    uint64 = 0x1a095090689d4647
)

// paramMarkers make argument position part of the hash.
var paramMarkers = [...]uint64{
	0x9e3779b97f4a7c15, 0xbf58476d1ce4e5b9, 0x94d049bb133111eb, 0xd6e8feb86659fd93,
	0xe7037ed1a0b428db, 0xc6a4a7935bd1e995, 0x8648dbbc94d49b8d, 0xa2b48b2c69e0d657,
	0x7c3e9f2a5b8d1403, 0x5d8c7b4a3e9f2106, 0x3f1e9d8c7b5a4203, 0x1a2b3c4d5e6f7089,
	0x9f8e7d6c5b4a3210, 0x2468ace013579bdf, 0xfdb97531eca86420, 0x123456789abcdef0,
}

func marker(i int) uint64 {
	if i < len(paramMarkers) {
		return paramMarkers[i]
	}
	return paramMarkers[0] + uint64(i)
}

func hashName(name string) uint64 {
	return xxhash.Sum64String(norm.NFC.String(name))
}

func mixList(seed uint64, keys []TypeKey) TypeKey {
	h := seed
	for i, k := range keys {
		h = h*mixSep + (marker(i) ^ uint64(k))
	}
	return TypeKey(h)
}

// FromName computes the key of a named type from its qualified name
// ("int", "game::Player", "array::T").
func FromName(qualified string) TypeKey {
	return TypeKey(mixType ^ hashName(qualified))
}

// FromFunction computes the key of a free function from its qualified name
// and ordered parameter keys.
func FromFunction(qualified string, params []TypeKey) TypeKey {
	return mixList(mixFunction^hashName(qualified), params)
}

// FromMethod computes the key of a method. Const methods differ from their
// non-const overloads.
func FromMethod(owner TypeKey, name string, params []TypeKey, isConst bool) TypeKey {
	seed := mixMethod ^ uint64(owner) ^ hashName(name)
	if isConst {
		seed ^= 0x1
	}
	return mixList(seed, params)
}

// FromConstructor computes the key of a constructor of owner.
func FromConstructor(owner TypeKey, params []TypeKey) TypeKey {
	return mixList(mixConstructor^uint64(owner), params)
}

// FromTemplateInstance computes the key of template instantiated with args.
// Argument order matters: dictionary<int,string> != dictionary<string,int>.
func FromTemplateInstance(template TypeKey, args []TypeKey) TypeKey {
	return mixList(uint64(template), args)
}

// Qualify joins a namespace path and a name with "::".
func Qualify(namespace []string, name string) string {
	if len(namespace) == 0 {
		return name
	}
	var b strings.Builder
	for _, ns := range namespace {
		b.WriteString(ns)
		b.WriteString("::")
	}
	b.WriteString(name)
	return b.String()
}

// SplitQualified is the inverse of Qualify.
func SplitQualified(qualified string) (namespace []string, name string) {
	parts := strings.Split(qualified, "::")
	if len(parts) == 1 {
		return nil, qualified
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}
