// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/frametech/utility/kar"
	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// rawArchive lays out an archive by hand so headers can lie about sizes.
func rawArchive(t *testing.T, header kar.Header, data []byte) []byte {
	t.Helper()
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(header); err != nil {
		t.Fatal(err)
	}
	buf := bytes.NewBufferString(kar.Magic)
	size := make([]byte, kar.HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(size, uint64(encoded.Len()))
	buf.Write(size)
	buf.Write(encoded.Bytes())
	buf.Write(data)
	return buf.Bytes()
}

func compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenHugeHeaderSize(t *testing.T) {
	for _, size := range []uint64{1 << 62, 1 << 40, 1 << 63} {
		data := []byte(kar.Magic)
		sizeBytes := make([]byte, kar.HeaderSizeNumberLength)
		binary.LittleEndian.PutUint64(sizeBytes, size)
		data = append(data, sizeBytes...)
		data = append(data, "short"...)

		if _, err := kar.Open(bytes.NewReader(data)); err != kar.ErrFileFormat {
			t.Errorf("header size %d: expected ErrFileFormat, got %v", size, err)
		}
	}
}

func TestOpenEntryOutsideArchive(t *testing.T) {
	data := compress(t, "hello")
	cases := map[string]kar.IndexEntry{
		"past the end":    {Name: "x", Offset: 0, Size: 5, CompressedSize: 1 << 40},
		"negative offset": {Name: "x", Offset: -1, Size: 5, CompressedSize: int64(len(data))},
		"offset overflow": {Name: "x", Offset: 1<<63 - 2, Size: 5, CompressedSize: 10},
		"negative size":   {Name: "x", Offset: 0, Size: -5, CompressedSize: int64(len(data))},
	}
	for name, entry := range cases {
		raw := rawArchive(t, kar.Header{Index: []kar.IndexEntry{entry}}, data)
		if _, err := kar.Open(bytes.NewReader(raw)); err != kar.ErrFileFormat {
			t.Errorf("%s: expected ErrFileFormat, got %v", name, err)
		}
	}
}

func TestReadAllWrongSize(t *testing.T) {
	data := compress(t, "hello")
	raw := rawArchive(t, kar.Header{Index: []kar.IndexEntry{
		{Name: "lies", Offset: 0, Size: 1 << 40, CompressedSize: int64(len(data))},
	}}, data)

	ar, err := kar.Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.ReadAll("lies"); err != kar.ErrFileFormat {
		t.Error("expected ErrFileFormat, got", err)
	}
}

func TestOpenNotKar(t *testing.T) {
	if _, err := kar.Open(bytes.NewReader([]byte("TAR\x00 definitely not an archive"))); err != kar.ErrFileFormat {
		t.Error("expected ErrFileFormat, got", err)
	}
	if _, err := kar.Open(bytes.NewReader([]byte("KA"))); err != kar.ErrFileFormat {
		t.Error("short input: expected ErrFileFormat, got", err)
	}
}

func TestOpenTruncated(t *testing.T) {
	data := buildArchive(t)
	if _, err := kar.Open(bytes.NewReader(data[:kar.MagicLength+kar.HeaderSizeNumberLength+4])); err != kar.ErrFileFormat {
		t.Error("expected ErrFileFormat, got", err)
	}
}

func TestOpenmmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opentest.kar")
	if err := os.WriteFile(path, buildArchive(t), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ar, err := kar.Open(r)
	if err != nil {
		t.Fatal(err)
	}

	if f, err := ar.ReadAll("test2"); err != nil {
		t.Error(err)
	} else if string(f) != testString2 {
		t.Error("result is not expected value")
	}
}

func BenchmarkReadAll(b *testing.B) {
	builder, err := kar.NewBuilder(kar.Header{Author: "devblok", Version: 1})
	if err != nil {
		b.Fatal(err)
	}
	defer builder.Close()
	builder.Add("blob", bytes.NewReader(make([]byte, 64*1024)))

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		b.Fatal(err)
	}
	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ar.ReadAll("blob")
	}
}
