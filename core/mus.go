package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the core records. Written by hand in the shape musgen
// emits so the storage layer can stay a thin wrapper; the vector layout is
// fixed-width float32 to keep stored embeddings compact and alignment-free.

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	num, n, err := varint.Uint64.Unmarshal(bs)
	return ID(num), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

// timeMUS serializes time.Time values at microsecond precision, normalized
// to UTC on the way back out.
var timeMUS = timeMicroMUS{}

type timeMicroMUS struct{}

func (s timeMicroMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMicroMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(micros).UTC()
	return
}

func (s timeMicroMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

// MetadataMUS serializes Metadata values.
var MetadataMUS = metadataMUS{}

type metadataMUS struct{}

func (s metadataMUS) Marshal(v Metadata, bs []byte) (n int) {
	n = ord.String.Marshal(v.Date, bs)
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.Location, bs[n:])
	return
}

func (s metadataMUS) Unmarshal(bs []byte) (v Metadata, n int, err error) {
	v.Date, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Author, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Location, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s metadataMUS) Size(v Metadata) (size int) {
	size = ord.String.Size(v.Date)
	size += ord.String.Size(v.Author)
	return size + ord.String.Size(v.Location)
}

// DocumentMUS serializes Document values.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += timeMUS.Marshal(v.IngestedAt, bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IngestedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.Text)
	return size + timeMUS.Size(v.IngestedAt)
}

// ChunkMUS serializes Chunk values.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(v.Ordinal, bs[n:])
	n += varint.Int.Marshal(v.Start, bs[n:])
	n += varint.Int.Marshal(v.End, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	n += varint.Float64.Marshal(v.BaseScore, bs[n:])
	return
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Start, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.End, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.BaseScore, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.Ordinal)
	size += varint.Int.Size(v.Start)
	size += varint.Int.Size(v.End)
	size += ord.String.Size(v.Text)
	size += MetadataMUS.Size(v.Metadata)
	return size + varint.Float64.Size(v.BaseScore)
}

// FeedbackRecordMUS serializes FeedbackRecord values.
var FeedbackRecordMUS = feedbackRecordMUS{}

type feedbackRecordMUS struct{}

func (s feedbackRecordMUS) Marshal(v FeedbackRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkId, bs)
	n += varint.Float64.Marshal(v.Score, bs[n:])
	n += varint.Uint64.Marshal(v.Events, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s feedbackRecordMUS) Unmarshal(bs []byte) (v FeedbackRecord, n int, err error) {
	v.ChunkId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Score, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Events, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s feedbackRecordMUS) Size(v FeedbackRecord) (size int) {
	size = IDMUS.Size(v.ChunkId)
	size += varint.Float64.Size(v.Score)
	size += varint.Uint64.Size(v.Events)
	return size + timeMUS.Size(v.UpdatedAt)
}

// CheckpointMUS serializes Checkpoint values.
var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Operation, bs)
	n += IDMUS.Marshal(v.LastChunkId, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.Operation, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.LastChunkId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Operation)
	size += IDMUS.Size(v.LastChunkId)
	return size + timeMUS.Size(v.UpdatedAt)
}

// VectorMUS serializes embedding vectors as a varint length followed by
// fixed-width float32 elements.
var VectorMUS = vectorMUS{}

type vectorMUS struct{}

func (s vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, el := range v {
		n += raw.Float32.Marshal(el, bs[n:])
	}
	return
}

func (s vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := 0; i < length; i++ {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			v = nil
			return
		}
	}
	return
}

func (s vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, el := range v {
		size += raw.Float32.Size(el)
	}
	return
}
