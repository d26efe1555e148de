package loaders

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
)

// TDMS (National Instruments) sensor-log reader. Only the subset of the
// format this project produces datasets from is supported: little-endian
// segments with non-interleaved numeric raw data. DAQmx raw data,
// interleaved layouts and big-endian segments are rejected.

// TDMS lead-in table-of-contents flags.
const (
	tocMetaData        = 1 << 1
	tocNewObjList      = 1 << 2
	tocRawData         = 1 << 3
	tocInterleavedData = 1 << 5
	tocBigEndian       = 1 << 6
	tocDAQmxRawData    = 1 << 7
)

// TDMS data type codes for the numeric types we accept.
const (
	tdsTypeI8          = 0x01
	tdsTypeI16         = 0x02
	tdsTypeI32         = 0x03
	tdsTypeI64         = 0x04
	tdsTypeU8          = 0x05
	tdsTypeU16         = 0x06
	tdsTypeU32         = 0x07
	tdsTypeU64         = 0x08
	tdsTypeSingleFloat = 0x09
	tdsTypeDoubleFloat = 0x0A
	tdsTypeString      = 0x20
	tdsTypeBoolean     = 0x21
	tdsTypeTimeStamp   = 0x44
)

const (
	rawIndexNoData          = 0xFFFFFFFF
	rawIndexMatchesPrevious = 0x00000000
)

// TDMSConfig selects the window of values extracted from each file after
// the channels have been concatenated.
type TDMSConfig struct {
	// Count is the number of values the window extracts. Ignored when
	// Window is "all".
	Count int

	// Window positions the slice: "all", "head", "middle", "tail", or a
	// decimal start offset. Empty means "all".
	Window string
}

// TDMSLoader decodes a TDMS file into a 1-D float32 array: the numeric
// channels concatenated in channel order, then cut down to the configured
// window. The window "all" spans [0, n-1), i.e. the final sample is
// dropped, matching the tool this dataset pipeline replaced.
type TDMSLoader struct {
	cfg TDMSConfig
}

// NewTDMSLoader returns a TDMSLoader with cfg defaults resolved.
func NewTDMSLoader(cfg TDMSConfig) *TDMSLoader {
	if cfg.Window == "" {
		cfg.Window = "all"
	}
	return &TDMSLoader{cfg: cfg}
}

// Load reads and windows the TDMS file at path. The returned dims are the
// 1-D window length.
func (l *TDMSLoader) Load(path string) ([]float32, []int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tdms file %s: %w", path, err)
	}
	flat, err := decodeTDMS(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode tdms file %s: %w", path, err)
	}
	window, err := sliceWindow(flat, l.cfg.Window, l.cfg.Count)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to window tdms file %s: %w", path, err)
	}
	return window, []int{len(window)}, nil
}

// sliceWindow cuts a window out of arr. For "all" the window is the whole
// array minus the final sample; for the positioned windows count values are
// taken starting at the head, middle, tail or the given offset. The window
// is clipped at the end of the array.
func sliceWindow(arr []float32, window string, count int) ([]float32, error) {
	total := len(arr)
	if window != "all" && count >= total {
		return nil, fmt.Errorf("window count %d must be smaller than the %d decoded values", count, total)
	}

	var start, stop int
	switch window {
	case "all":
		start, stop = 0, total-1
	case "head":
		start, stop = 0, count
	case "middle":
		start = total / 2
		stop = start + count
	case "tail":
		stop = total - 1
		start = stop - count
	default:
		offset, err := strconv.Atoi(window)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", window, err)
		}
		if offset < 0 || offset >= total {
			return nil, fmt.Errorf("window offset %d out of range [0, %d)", offset, total)
		}
		start, stop = offset, offset+count
	}
	if stop > total {
		stop = total
	}
	out := make([]float32, stop-start)
	copy(out, arr[start:stop])
	return out, nil
}

// rawIndex describes one channel's raw data layout within a segment.
type rawIndex struct {
	dtype uint32
	count uint64
}

// decodeTDMS walks every segment of the file and returns the numeric
// channels concatenated in the order the channels first appear.
func decodeTDMS(b []byte) ([]float32, error) {
	r := &byteReader{b: b}

	channels := make(map[string][]float32)
	indexes := make(map[string]rawIndex)
	var order []string  // first-seen order of every channel with data
	var active []string // channels carrying raw data in the current segment

	for !r.done() {
		if r.remaining() < 28 {
			return nil, fmt.Errorf("truncated segment lead-in at byte %d", r.pos)
		}
		tag := string(r.b[r.pos : r.pos+4])
		if tag != "TDSm" {
			return nil, fmt.Errorf("bad segment tag %q at byte %d", tag, r.pos)
		}
		r.pos += 4
		toc := binary.LittleEndian.Uint32(r.next(4))
		r.next(4) // version
		r.next(8) // next segment offset
		rawDataOffset := binary.LittleEndian.Uint64(r.next(8))
		metaStart := r.pos

		if toc&tocBigEndian != 0 {
			return nil, fmt.Errorf("big-endian segments are not supported")
		}
		if toc&tocDAQmxRawData != 0 {
			return nil, fmt.Errorf("DAQmx raw data is not supported")
		}
		if toc&tocInterleavedData != 0 {
			return nil, fmt.Errorf("interleaved raw data is not supported")
		}

		if toc&tocMetaData != 0 {
			if toc&tocNewObjList != 0 {
				active = active[:0]
			}
			if err := readMetadata(r, indexes, &active); err != nil {
				return nil, err
			}
		}

		// metadata length is authoritative, skip whatever remains
		r.pos = metaStart + int(rawDataOffset)

		if toc&tocRawData != 0 {
			for _, name := range active {
				idx := indexes[name]
				vals, err := decodeValues(r, idx.dtype, int(idx.count))
				if err != nil {
					return nil, fmt.Errorf("channel %s: %w", name, err)
				}
				if _, seen := channels[name]; !seen {
					order = append(order, name)
				}
				channels[name] = append(channels[name], vals...)
			}
		}
	}

	var flat []float32
	for _, name := range order {
		flat = append(flat, channels[name]...)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("no numeric channel data found")
	}
	return flat, nil
}

// readMetadata parses one segment's object list, updating the per-channel
// raw data indexes and the active channel order.
func readMetadata(r *byteReader, indexes map[string]rawIndex, active *[]string) error {
	if r.remaining() < 4 {
		return fmt.Errorf("truncated metadata at byte %d", r.pos)
	}
	numObjects := binary.LittleEndian.Uint32(r.next(4))
	for i := uint32(0); i < numObjects; i++ {
		name, err := readString(r)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		if r.remaining() < 4 {
			return fmt.Errorf("object %s: truncated raw data index", name)
		}
		indexLen := binary.LittleEndian.Uint32(r.next(4))
		switch indexLen {
		case rawIndexNoData:
			// nothing to do, object carries no data this segment
		case rawIndexMatchesPrevious:
			if _, ok := indexes[name]; !ok {
				return fmt.Errorf("object %s: no previous raw data index to reuse", name)
			}
			appendUnique(active, name)
		default:
			if r.remaining() < 16 {
				return fmt.Errorf("object %s: truncated raw data index", name)
			}
			dtype := binary.LittleEndian.Uint32(r.next(4))
			dims := binary.LittleEndian.Uint32(r.next(4))
			if dims != 1 {
				return fmt.Errorf("object %s: array dimension %d not supported", name, dims)
			}
			count := binary.LittleEndian.Uint64(r.next(8))
			if dtype == tdsTypeString {
				return fmt.Errorf("object %s: string channels are not supported", name)
			}
			indexes[name] = rawIndex{dtype: dtype, count: count}
			appendUnique(active, name)
		}
		if err := skipProperties(r); err != nil {
			return fmt.Errorf("object %s: %w", name, err)
		}
	}
	return nil
}

// skipProperties advances past an object's property block.
func skipProperties(r *byteReader) error {
	if r.remaining() < 4 {
		return fmt.Errorf("truncated property count")
	}
	numProps := binary.LittleEndian.Uint32(r.next(4))
	for i := uint32(0); i < numProps; i++ {
		if _, err := readString(r); err != nil {
			return fmt.Errorf("property %d name: %w", i, err)
		}
		if r.remaining() < 4 {
			return fmt.Errorf("property %d: truncated type", i)
		}
		dtype := binary.LittleEndian.Uint32(r.next(4))
		var size int
		switch dtype {
		case tdsTypeI8, tdsTypeU8, tdsTypeBoolean:
			size = 1
		case tdsTypeI16, tdsTypeU16:
			size = 2
		case tdsTypeI32, tdsTypeU32, tdsTypeSingleFloat:
			size = 4
		case tdsTypeI64, tdsTypeU64, tdsTypeDoubleFloat:
			size = 8
		case tdsTypeTimeStamp:
			size = 16
		case tdsTypeString:
			if _, err := readString(r); err != nil {
				return fmt.Errorf("property %d value: %w", i, err)
			}
			continue
		default:
			return fmt.Errorf("property %d: unsupported type 0x%02X", i, dtype)
		}
		if r.remaining() < size {
			return fmt.Errorf("property %d: truncated value", i)
		}
		r.next(size)
	}
	return nil
}

// decodeValues reads n raw values of the given TDMS type as float32.
func decodeValues(r *byteReader, dtype uint32, n int) ([]float32, error) {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		switch dtype {
		case tdsTypeI8:
			if r.remaining() < 1 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(int8(r.next(1)[0]))
		case tdsTypeU8:
			if r.remaining() < 1 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(r.next(1)[0])
		case tdsTypeI16:
			if r.remaining() < 2 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(int16(binary.LittleEndian.Uint16(r.next(2))))
		case tdsTypeU16:
			if r.remaining() < 2 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(binary.LittleEndian.Uint16(r.next(2)))
		case tdsTypeI32:
			if r.remaining() < 4 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(int32(binary.LittleEndian.Uint32(r.next(4))))
		case tdsTypeU32:
			if r.remaining() < 4 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(binary.LittleEndian.Uint32(r.next(4)))
		case tdsTypeI64:
			if r.remaining() < 8 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(int64(binary.LittleEndian.Uint64(r.next(8))))
		case tdsTypeU64:
			if r.remaining() < 8 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(binary.LittleEndian.Uint64(r.next(8)))
		case tdsTypeSingleFloat:
			if r.remaining() < 4 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.next(4)))
		case tdsTypeDoubleFloat:
			if r.remaining() < 8 {
				return nil, fmt.Errorf("truncated raw data")
			}
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(r.next(8))))
		default:
			return nil, fmt.Errorf("unsupported channel type 0x%02X", dtype)
		}
	}
	return out, nil
}

// readString reads a length-prefixed UTF-8 string.
func readString(r *byteReader) (string, error) {
	if r.remaining() < 4 {
		return "", fmt.Errorf("truncated string length")
	}
	n := int(binary.LittleEndian.Uint32(r.next(4)))
	if r.remaining() < n {
		return "", fmt.Errorf("truncated string of length %d", n)
	}
	return string(r.next(n)), nil
}

func appendUnique(list *[]string, name string) {
	for _, have := range *list {
		if have == name {
			return
		}
	}
	*list = append(*list, name)
}

// byteReader is a cursor over the raw file bytes.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) done() bool     { return r.pos >= len(r.b) }
func (r *byteReader) remaining() int { return len(r.b) - r.pos }

func (r *byteReader) next(n int) []byte {
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}
