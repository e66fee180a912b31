// Package scenecache persists a conditioned scene.Scene to disk so
// repeated loads of the same glTF asset can skip LOD generation,
// meshlet partitioning and texture compression.
package scenecache

import (
	"encoding/binary"
	"encoding/gob"
	"errors"
	"io"
	"os"

	"github.com/google/uuid"

	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
)

var errBadHeader = errors.New("scenecache: unrecognized header")

// magic identifies a scene-cache file; version changes whenever the
// gob-encoded payload's shape changes incompatibly.
const (
	magic   = "RNDC"
	version = 1
)

// headerLen is the fixed size of the on-disk header: 4-byte magic,
// 4-byte version, and a 16-byte UUID. It is written with
// encoding/binary rather than gob so that it can be parsed without
// opening a gob stream, and so that the single gob stream that
// follows (the Scene payload) owns its own type table from byte 0 —
// concatenating two independent gob.Encoder outputs into one stream
// risks colliding type IDs when a single gob.Decoder reads both back.
const headerLen = 4 + 4 + 16

// Save writes s to path as a fixed header followed by a single
// gob-encoded payload. The returned ID identifies this specific
// cache entry and can be logged alongside the source asset path.
func Save(path string, s *scene.Scene) (uuid.UUID, error) {
	id := uuid.New()
	f, err := os.Create(path)
	if err != nil {
		return uuid.Nil, errs.New(errs.KindIO, "scenecache.Save", err)
	}
	defer f.Close()

	var hdr [headerLen]byte
	copy(hdr[:4], magic)
	binary.LittleEndian.PutUint32(hdr[4:8], version)
	idBytes, _ := id.MarshalBinary()
	copy(hdr[8:], idBytes)
	if _, err := f.Write(hdr[:]); err != nil {
		return uuid.Nil, errs.New(errs.KindIO, "scenecache.Save", err)
	}
	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return uuid.Nil, errs.New(errs.KindIO, "scenecache.Save", err)
	}
	return id, nil
}

// Load reads a scene-cache file previously written by Save. It
// returns errs.KindParse if the header's magic or version does not
// match the current format, so callers can fall back to
// reprocessing the source asset instead of treating it as fatal.
func Load(path string) (*scene.Scene, uuid.UUID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, uuid.Nil, errs.New(errs.KindIO, "scenecache.Load", err)
	}
	defer f.Close()

	var hdr [headerLen]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return nil, uuid.Nil, errs.New(errs.KindParse, "scenecache.Load", err)
	}
	if string(hdr[:4]) != magic || binary.LittleEndian.Uint32(hdr[4:8]) != version {
		return nil, uuid.Nil, errs.New(errs.KindParse, "scenecache.Load", errBadHeader)
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(hdr[8:]); err != nil {
		return nil, uuid.Nil, errs.New(errs.KindParse, "scenecache.Load", err)
	}

	var s scene.Scene
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, uuid.Nil, errs.New(errs.KindParse, "scenecache.Load", err)
	}
	return &s, id, nil
}
