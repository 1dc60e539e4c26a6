package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image: chunk serialization
// ---------------------------------------------------------------------------
//
// A serialized chunk is: magic "ARK1", version u16 (big-endian), then a
// canonical-CBOR body. Only values that can appear in a constant pool are
// encodable: nil, booleans, numbers, strings, lists of those, functions and
// unapplied constructors.

// ImageMagic identifies a serialized chunk.
var ImageMagic = []byte{'A', 'R', 'K', '1'}

// ImageVersion is the current image format version. Increment on
// incompatible changes.
const ImageVersion uint16 = 1

// ErrBadImage reports a malformed or incompatible image.
var ErrBadImage = errors.New("ongeldige ARK1-beeld")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: kon nie CBOR enc-modus skep nie: %v", err))
	}
	cborEncMode = em
}

// Wire mirrors of the runtime types. The Value interface cannot round-trip
// through CBOR directly, so constants are flattened into tagged wireValues.
type wireChunk struct {
	Code      []byte      `cbor:"1,keyasint"`
	Constants []wireValue `cbor:"2,keyasint"`
	Lines     []int       `cbor:"3,keyasint"`
}

type wireValue struct {
	Kind    byte          `cbor:"1,keyasint"`
	Int     int64         `cbor:"2,keyasint,omitempty"`
	Float   float64       `cbor:"3,keyasint,omitempty"`
	Str     string        `cbor:"4,keyasint,omitempty"`
	List    []wireValue   `cbor:"5,keyasint,omitempty"`
	Fn      *wireFunction `cbor:"6,keyasint,omitempty"`
	Variant string        `cbor:"7,keyasint,omitempty"`
	Arity   int           `cbor:"8,keyasint,omitempty"`
}

type wireFunction struct {
	Name     string     `cbor:"1,keyasint,omitempty"`
	Arity    int        `cbor:"2,keyasint"`
	Chunk    *wireChunk `cbor:"3,keyasint"`
	UpIndex  []int      `cbor:"4,keyasint,omitempty"`
	UpLocal  []bool     `cbor:"5,keyasint,omitempty"`
}

const (
	wireNil byte = iota
	wireFalse
	wireTrue
	wireInt
	wireFloat
	wireString
	wireList
	wireFn
	wireConstructor
)

// MarshalChunk serializes a chunk to ARK1 image bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	wc, err := chunkToWire(c)
	if err != nil {
		return nil, err
	}
	body, err := cborEncMode.Marshal(wc)
	if err != nil {
		return nil, fmt.Errorf("vm: kodeer beeld: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(ImageMagic)
	var ver [2]byte
	binary.BigEndian.PutUint16(ver[:], ImageVersion)
	buf.Write(ver[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// UnmarshalChunk deserializes ARK1 image bytes back into a chunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	if len(data) < 6 || !bytes.Equal(data[:4], ImageMagic) {
		return nil, ErrBadImage
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version != ImageVersion {
		return nil, fmt.Errorf("%w: weergawe %d word nie ondersteun nie", ErrBadImage, version)
	}

	var wc wireChunk
	if err := cbor.Unmarshal(data[6:], &wc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return wireToChunk(&wc)
}

func chunkToWire(c *Chunk) (*wireChunk, error) {
	wc := &wireChunk{
		Code:  c.Code,
		Lines: c.Lines,
	}
	for _, konst := range c.Constants {
		wv, err := valueToWire(konst)
		if err != nil {
			return nil, err
		}
		wc.Constants = append(wc.Constants, wv)
	}
	return wc, nil
}

func valueToWire(v Value) (wireValue, error) {
	switch t := v.(type) {
	case Nil:
		return wireValue{Kind: wireNil}, nil
	case Bool:
		if t {
			return wireValue{Kind: wireTrue}, nil
		}
		return wireValue{Kind: wireFalse}, nil
	case Int:
		return wireValue{Kind: wireInt, Int: int64(t)}, nil
	case Float:
		return wireValue{Kind: wireFloat, Float: float64(t)}, nil
	case String:
		return wireValue{Kind: wireString, Str: string(t)}, nil
	case *List:
		wv := wireValue{Kind: wireList}
		for _, item := range t.Items {
			wi, err := valueToWire(item)
			if err != nil {
				return wireValue{}, err
			}
			wv.List = append(wv.List, wi)
		}
		return wv, nil
	case *Function:
		wc, err := chunkToWire(t.Chunk)
		if err != nil {
			return wireValue{}, err
		}
		wf := &wireFunction{Name: t.Name, Arity: t.Arity, Chunk: wc}
		for _, uv := range t.Upvalues {
			wf.UpIndex = append(wf.UpIndex, uv.Index)
			wf.UpLocal = append(wf.UpLocal, uv.IsLocal)
		}
		return wireValue{Kind: wireFn, Fn: wf}, nil
	case *Constructor:
		if t.Fields != nil {
			return wireValue{}, fmt.Errorf("vm: toegepaste konstruktor kan nie in 'n konstantepoel voorkom nie")
		}
		return wireValue{Kind: wireConstructor, Str: t.Type, Variant: t.Variant, Arity: t.Arity}, nil
	}
	return wireValue{}, fmt.Errorf("vm: waarde van tipe %s kan nie geserialiseer word nie", v.TypeName())
}

func wireToChunk(wc *wireChunk) (*Chunk, error) {
	if len(wc.Code) != len(wc.Lines) {
		return nil, fmt.Errorf("%w: lyn-tabel pas nie by kode nie", ErrBadImage)
	}
	c := &Chunk{
		Code:  wc.Code,
		Lines: wc.Lines,
	}
	for _, wv := range wc.Constants {
		v, err := wireToValue(wv)
		if err != nil {
			return nil, err
		}
		c.Constants = append(c.Constants, v)
	}
	return c, nil
}

func wireToValue(wv wireValue) (Value, error) {
	switch wv.Kind {
	case wireNil:
		return Nil{}, nil
	case wireFalse:
		return Bool(false), nil
	case wireTrue:
		return Bool(true), nil
	case wireInt:
		return Int(wv.Int), nil
	case wireFloat:
		return Float(wv.Float), nil
	case wireString:
		return String(wv.Str), nil
	case wireList:
		list := &List{}
		for _, wi := range wv.List {
			item, err := wireToValue(wi)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
		return list, nil
	case wireFn:
		if wv.Fn == nil || wv.Fn.Chunk == nil {
			return nil, fmt.Errorf("%w: funksie sonder kode", ErrBadImage)
		}
		chunk, err := wireToChunk(wv.Fn.Chunk)
		if err != nil {
			return nil, err
		}
		fn := &Function{Name: wv.Fn.Name, Arity: wv.Fn.Arity, Chunk: chunk}
		if len(wv.Fn.UpIndex) != len(wv.Fn.UpLocal) {
			return nil, fmt.Errorf("%w: gevangde-veranderlike tabelle pas nie", ErrBadImage)
		}
		for i := range wv.Fn.UpIndex {
			fn.Upvalues = append(fn.Upvalues, UpvalueDesc{Index: wv.Fn.UpIndex[i], IsLocal: wv.Fn.UpLocal[i]})
		}
		return fn, nil
	case wireConstructor:
		return &Constructor{Type: wv.Str, Variant: wv.Variant, Arity: wv.Arity}, nil
	}
	return nil, fmt.Errorf("%w: onbekende waarde-soort %d", ErrBadImage, wv.Kind)
}
