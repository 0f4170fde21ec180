// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package govici

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_EmptyRoundTrip(t *testing.T) {
	m := NewMessage()
	buf, err := m.Encode()
	require.NoError(t, err)
	assert.Empty(t, buf)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestMessage_KeyValueRoundTrip(t *testing.T) {
	m := NewMessage().AddKVString("version", "5.9.14")
	buf, err := m.Encode()
	require.NoError(t, err)

	want := []byte{byte(tagKeyValue), 7}
	want = append(want, "version"...)
	want = append(want, 0, 6)
	want = append(want, "5.9.14"...)
	assert.Equal(t, want, buf)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestMessage_SingleItemListRoundTrip(t *testing.T) {
	m := NewMessage().AddList("names", []string{"moon"})
	buf, err := m.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestMessage_NestedSectionsRoundTrip(t *testing.T) {
	inner := NewMessage().AddKVString("local_ts", "10.0.0.0/24")
	m := NewMessage().AddSection("child-sa", inner)

	buf, err := m.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestMessage_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		kind CodecKind
	}{
		{"unknown tag", []byte{0xff}, UnknownTag},
		{"unterminated section", []byte{byte(tagSectionStart), 1, 'a'}, Unterminated},
		{"section end without start", []byte{byte(tagSectionEnd)}, NestingMismatch},
		{"list end without start", []byte{byte(tagListEnd)}, NestingMismatch},
		{"list contains section", []byte{
			byte(tagListStart), 1, 'a',
			byte(tagSectionStart), 1, 'b',
		}, ListContainsSection},
		{"truncated name length", []byte{byte(tagKeyValue)}, Truncated},
		{"truncated name bytes", []byte{byte(tagKeyValue), 5, 'a'}, Truncated},
		{"truncated value length", []byte{byte(tagKeyValue), 1, 'a'}, Truncated},
		{"truncated value bytes", []byte{byte(tagKeyValue), 1, 'a', 0, 5, 'x'}, Truncated},
		{"zero-length name", []byte{byte(tagSectionStart), 0}, NameLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage(tt.buf)
			require.Error(t, err)
			var ce *CodecError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
		})
	}
}

func TestMessage_EncodeNameTooLong(t *testing.T) {
	m := NewMessage().AddKVString(string(make([]byte, 256)), "x")
	_, err := m.Encode()
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, NameLength, ce.Kind)
}

func TestMessage_EncodeValueTooLong(t *testing.T) {
	m := NewMessage().AddKV("k", make([]byte, 65536))
	_, err := m.Encode()
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ValueLength, ce.Kind)
}

func TestMessage_Equal(t *testing.T) {
	a := NewMessage().AddKVString("k", "v")
	b := NewMessage().AddKVString("k", "v")
	c := NewMessage().AddKVString("k", "w")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
