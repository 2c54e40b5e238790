package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"codeberg.org/go-mmap/mmap"
)

// ZMO format errors.
var (
	ErrInvalidZMOMagic   = errors.New("invalid ZMO magic: expected 'ZMO0002'")
	ErrInvalidZMOHeader  = errors.New("invalid ZMO header")
	ErrInvalidZMOChannel = errors.New("invalid ZMO channel type")
	ErrTruncatedZMOData  = errors.New("truncated ZMO data")
)

const (
	zmoMagic       = "ZMO0002"
	zmoEventsTag   = "EZMO" // trailer with frame events
	zmoIntervalTag = "3ZMO" // trailer with frame events and interpolation interval
)

// ZMOChannelType identifies what a channel animates.
type ZMOChannelType uint32

const (
	ZMOChannelEmpty    ZMOChannelType = 1 << 0
	ZMOChannelPosition ZMOChannelType = 1 << 1
	ZMOChannelRotation ZMOChannelType = 1 << 2
	ZMOChannelNormal   ZMOChannelType = 1 << 3
	ZMOChannelAlpha    ZMOChannelType = 1 << 4
	ZMOChannelUV1      ZMOChannelType = 1 << 5
	ZMOChannelUV2      ZMOChannelType = 1 << 6
	ZMOChannelUV3      ZMOChannelType = 1 << 7
	ZMOChannelUV4      ZMOChannelType = 1 << 8
	ZMOChannelTexture  ZMOChannelType = 1 << 9
	ZMOChannelScale    ZMOChannelType = 1 << 10
)

// String returns a human-readable channel type name.
func (t ZMOChannelType) String() string {
	switch t {
	case ZMOChannelEmpty:
		return "Empty"
	case ZMOChannelPosition:
		return "Position"
	case ZMOChannelRotation:
		return "Rotation"
	case ZMOChannelNormal:
		return "Normal"
	case ZMOChannelAlpha:
		return "Alpha"
	case ZMOChannelUV1:
		return "UV1"
	case ZMOChannelUV2:
		return "UV2"
	case ZMOChannelUV3:
		return "UV3"
	case ZMOChannelUV4:
		return "UV4"
	case ZMOChannelTexture:
		return "Texture"
	case ZMOChannelScale:
		return "Scale"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// sampleSize returns the number of bytes one frame of this channel occupies.
func (t ZMOChannelType) sampleSize() (int, bool) {
	switch t {
	case ZMOChannelEmpty:
		return 0, true
	case ZMOChannelPosition, ZMOChannelNormal:
		return 12, true
	case ZMOChannelRotation:
		return 16, true
	case ZMOChannelUV1, ZMOChannelUV2, ZMOChannelUV3, ZMOChannelUV4:
		return 8, true
	case ZMOChannelAlpha, ZMOChannelTexture, ZMOChannelScale:
		return 4, true
	default:
		return 0, false
	}
}

// ZMOChannel holds every frame's sample for one animated target.
// Only the slice matching Type is populated.
type ZMOChannel struct {
	Type  ZMOChannelType
	Index uint32 // Bone id, or vertex id for mesh motions

	Vectors   [][3]float32 // Position, Normal (X, Y, Z)
	Rotations [][4]float32 // Rotation (X, Y, Z, W)
	UVs       [][2]float32 // UV1-UV4
	Scalars   []float32    // Alpha, Texture, Scale
}

// Len returns the number of samples held by the channel.
func (c *ZMOChannel) Len() int {
	switch {
	case c.Vectors != nil:
		return len(c.Vectors)
	case c.Rotations != nil:
		return len(c.Rotations)
	case c.UVs != nil:
		return len(c.UVs)
	default:
		return len(c.Scalars)
	}
}

// ZMO represents a parsed motion file.
type ZMO struct {
	FPS       uint32
	NumFrames uint32
	Channels  []ZMOChannel

	// FrameEvents has one entry per frame, 0 = no event.
	FrameEvents []uint16

	// InterpolationInterval is the blend-in window in milliseconds.
	// nil when the file carries no 3ZMO trailer.
	InterpolationInterval *uint32
}

// ParseZMO parses a ZMO file from raw bytes.
func ParseZMO(data []byte) (*ZMO, error) {
	return ParseZMOReader(bytes.NewReader(data), int64(len(data)))
}

// ParseZMOFile parses a ZMO file from disk through a read-only memory map.
func ParseZMOFile(path string) (*ZMO, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping ZMO file: %w", err)
	}
	defer f.Close()

	return ParseZMOReader(f, int64(f.Len()))
}

// ParseZMOReader parses a ZMO file of the given size from r.
func ParseZMOReader(r io.ReaderAt, size int64) (*ZMO, error) {
	// magic(8) + fps + frames + channels
	if size < 20 {
		return nil, ErrTruncatedZMOData
	}

	sr := io.NewSectionReader(r, 0, size)

	magic := make([]byte, 8)
	if _, err := io.ReadFull(sr, magic); err != nil {
		return nil, ErrTruncatedZMOData
	}
	if end := bytes.IndexByte(magic, 0); end < 0 || string(magic[:end]) != zmoMagic {
		return nil, ErrInvalidZMOMagic
	}

	var header struct {
		FPS         uint32
		NumFrames   uint32
		NumChannels uint32
	}
	if err := binary.Read(sr, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedZMOData)
	}
	if header.FPS == 0 {
		return nil, fmt.Errorf("%w: fps is zero", ErrInvalidZMOHeader)
	}
	if header.NumFrames == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidZMOHeader)
	}

	// Each channel descriptor is 8 bytes
	if int64(header.NumChannels)*8 > size-20 {
		return nil, fmt.Errorf("%w: %d channel descriptors", ErrTruncatedZMOData, header.NumChannels)
	}

	zmo := &ZMO{
		FPS:       header.FPS,
		NumFrames: header.NumFrames,
		Channels:  make([]ZMOChannel, header.NumChannels),
	}

	frameSize := int64(0)
	for i := range zmo.Channels {
		var desc struct {
			Type  uint32
			Index uint32
		}
		if err := binary.Read(sr, binary.LittleEndian, &desc); err != nil {
			return nil, fmt.Errorf("%w: reading channel %d", ErrTruncatedZMOData, i)
		}

		kind := ZMOChannelType(desc.Type)
		n, ok := kind.sampleSize()
		if !ok {
			return nil, fmt.Errorf("%w: %d on channel %d", ErrInvalidZMOChannel, desc.Type, i)
		}
		frameSize += int64(n)

		zmo.Channels[i] = ZMOChannel{Type: kind, Index: desc.Index}
	}

	// Reject sample payloads that cannot fit before allocating them
	pos, _ := sr.Seek(0, io.SeekCurrent)
	if frameSize*int64(header.NumFrames) > size-pos {
		return nil, fmt.Errorf("%w: %d frames of %d bytes", ErrTruncatedZMOData, header.NumFrames, frameSize)
	}

	frames := int(header.NumFrames)
	for i := range zmo.Channels {
		allocChannel(&zmo.Channels[i], frames)
	}

	for frame := 0; frame < frames; frame++ {
		for i := range zmo.Channels {
			if err := readSample(sr, &zmo.Channels[i]); err != nil {
				return nil, fmt.Errorf("%w: frame %d channel %d", ErrTruncatedZMOData, frame, i)
			}
		}
	}

	zmo.FrameEvents = make([]uint16, frames)
	if err := readZMOTrailer(r, size, zmo); err != nil {
		return nil, err
	}

	return zmo, nil
}

func allocChannel(c *ZMOChannel, frames int) {
	switch c.Type {
	case ZMOChannelPosition, ZMOChannelNormal:
		c.Vectors = make([][3]float32, 0, frames)
	case ZMOChannelRotation:
		c.Rotations = make([][4]float32, 0, frames)
	case ZMOChannelUV1, ZMOChannelUV2, ZMOChannelUV3, ZMOChannelUV4:
		c.UVs = make([][2]float32, 0, frames)
	case ZMOChannelAlpha, ZMOChannelTexture, ZMOChannelScale:
		c.Scalars = make([]float32, 0, frames)
	}
}

// readSample appends one frame's sample to the channel.
func readSample(r io.Reader, c *ZMOChannel) error {
	switch c.Type {
	case ZMOChannelPosition, ZMOChannelNormal:
		var v [3]float32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.Vectors = append(c.Vectors, v)
	case ZMOChannelRotation:
		// Stored as W, X, Y, Z
		var wxyz [4]float32
		if err := binary.Read(r, binary.LittleEndian, &wxyz); err != nil {
			return err
		}
		c.Rotations = append(c.Rotations, [4]float32{wxyz[1], wxyz[2], wxyz[3], wxyz[0]})
	case ZMOChannelUV1, ZMOChannelUV2, ZMOChannelUV3, ZMOChannelUV4:
		var uv [2]float32
		if err := binary.Read(r, binary.LittleEndian, &uv); err != nil {
			return err
		}
		c.UVs = append(c.UVs, uv)
	case ZMOChannelAlpha, ZMOChannelTexture, ZMOChannelScale:
		var f float32
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return err
		}
		c.Scalars = append(c.Scalars, f)
	}
	return nil
}

// readZMOTrailer reads the optional EZMO/3ZMO block located by the last 8 bytes.
func readZMOTrailer(r io.ReaderAt, size int64, zmo *ZMO) error {
	if size < 28 {
		return nil
	}

	tail := make([]byte, 8)
	if _, err := r.ReadAt(tail, size-8); err != nil {
		return fmt.Errorf("%w: reading trailer", ErrTruncatedZMOData)
	}

	tag := string(tail[4:])
	if tag != zmoEventsTag && tag != zmoIntervalTag {
		return nil
	}

	offset := int64(binary.LittleEndian.Uint32(tail[:4]))
	if offset < 20 || offset >= size-8 {
		return fmt.Errorf("%w: trailer offset %d", ErrTruncatedZMOData, offset)
	}

	sr := io.NewSectionReader(r, offset, size-8-offset)

	var count uint16
	if err := binary.Read(sr, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: reading frame event count", ErrTruncatedZMOData)
	}

	events := make([]uint16, count)
	if err := binary.Read(sr, binary.LittleEndian, events); err != nil {
		return fmt.Errorf("%w: reading frame events", ErrTruncatedZMOData)
	}
	// Events past the last frame are never reachable
	copy(zmo.FrameEvents, events)

	if tag == zmoIntervalTag {
		var interval uint32
		if err := binary.Read(sr, binary.LittleEndian, &interval); err != nil {
			return fmt.Errorf("%w: reading interpolation interval", ErrTruncatedZMOData)
		}
		zmo.InterpolationInterval = &interval
	}

	return nil
}

// EncodeZMO serializes a motion back into the ZMO binary layout.
// A 3ZMO trailer is written when the motion has an interpolation interval,
// an EZMO trailer when it only has frame events.
func EncodeZMO(zmo *ZMO) []byte {
	var buf bytes.Buffer

	magic := make([]byte, 8)
	copy(magic, zmoMagic)
	buf.Write(magic)

	le := binary.LittleEndian
	_ = binary.Write(&buf, le, zmo.FPS)
	_ = binary.Write(&buf, le, zmo.NumFrames)
	_ = binary.Write(&buf, le, uint32(len(zmo.Channels)))

	for _, c := range zmo.Channels {
		_ = binary.Write(&buf, le, uint32(c.Type))
		_ = binary.Write(&buf, le, c.Index)
	}

	for frame := 0; frame < int(zmo.NumFrames); frame++ {
		for i := range zmo.Channels {
			writeSample(&buf, &zmo.Channels[i], frame)
		}
	}

	hasEvents := false
	for _, e := range zmo.FrameEvents {
		if e != 0 {
			hasEvents = true
			break
		}
	}
	if !hasEvents && zmo.InterpolationInterval == nil {
		return buf.Bytes()
	}

	offset := uint32(buf.Len())
	_ = binary.Write(&buf, le, uint16(len(zmo.FrameEvents)))
	_ = binary.Write(&buf, le, zmo.FrameEvents)

	tag := zmoEventsTag
	if zmo.InterpolationInterval != nil {
		_ = binary.Write(&buf, le, *zmo.InterpolationInterval)
		tag = zmoIntervalTag
	}

	_ = binary.Write(&buf, le, offset)
	buf.WriteString(tag)

	return buf.Bytes()
}

// writeSample writes one frame of the channel, zero-filling missing samples.
func writeSample(w io.Writer, c *ZMOChannel, frame int) {
	le := binary.LittleEndian
	switch c.Type {
	case ZMOChannelPosition, ZMOChannelNormal:
		var v [3]float32
		if frame < len(c.Vectors) {
			v = c.Vectors[frame]
		}
		_ = binary.Write(w, le, v)
	case ZMOChannelRotation:
		q := [4]float32{0, 0, 0, 1}
		if frame < len(c.Rotations) {
			q = c.Rotations[frame]
		}
		_ = binary.Write(w, le, [4]float32{q[3], q[0], q[1], q[2]})
	case ZMOChannelUV1, ZMOChannelUV2, ZMOChannelUV3, ZMOChannelUV4:
		var uv [2]float32
		if frame < len(c.UVs) {
			uv = c.UVs[frame]
		}
		_ = binary.Write(w, le, uv)
	case ZMOChannelAlpha, ZMOChannelTexture, ZMOChannelScale:
		var f float32
		if frame < len(c.Scalars) {
			f = c.Scalars[frame]
		}
		_ = binary.Write(w, le, f)
	}
}
