package serialline

import "fmt"

// ReadMode selects one of the four read algorithms.
type ReadMode int

const (
	// ReadRaw returns everything buffered so far plus a trailing NUL and
	// empties the buffer.
	ReadRaw ReadMode = 0
	// ReadNChar returns up to Arg bytes from the front of the buffer.
	ReadNChar ReadMode = 1
	// ReadLine returns the buffered bytes up to the first newline byte.
	ReadLine ReadMode = 2
	// ReadRetry drains the port up to Arg extra times, stopping once a
	// drain comes back empty, and returns the buffer without consuming it.
	ReadRetry ReadMode = 3
)

// ReadRequest is a decoded read command: a mode plus its numeric argument
// (character count for ReadNChar, attempt count for ReadRetry).
type ReadRequest struct {
	Mode ReadMode
	Arg  int
}

// DecodeReadRequest unpacks the integer form used on the wire: the mode tag
// sits in the low 4 bits, the argument in the bits above the low byte.
func DecodeReadRequest(argin int) (ReadRequest, error) {
	req := ReadRequest{
		Mode: ReadMode(argin & 0xf),
		Arg:  argin >> 8,
	}
	switch req.Mode {
	case ReadRaw, ReadNChar, ReadLine, ReadRetry:
		return req, nil
	}
	return ReadRequest{}, fmt.Errorf("%w: unknown read mode %d", ErrProtocol, int(req.Mode))
}

// Encode packs the request back into its wire form.
func (r ReadRequest) Encode() int {
	return int(r.Mode)&0xf | r.Arg<<8
}

// ClearOption selects which channel-level buffer Clear acts on.
type ClearOption int

const (
	ClearInput  ClearOption = 0 // discard unread input held by the driver
	ClearOutput ClearOption = 1 // block until pending output has drained
	ClearBoth   ClearOption = 2 // drain output, then discard input
)

// ParameterTag identifies one configurable field in a SetParameters batch.
// The values match the wire protocol.
type ParameterTag int

const (
	ParamTimeout    ParameterTag = 3
	ParamParity     ParameterTag = 4
	ParamCharLength ParameterTag = 5
	ParamStopBits   ParameterTag = 6
	ParamBaudRate   ParameterTag = 7
	ParamNewline    ParameterTag = 8
)

// Parameter is one (tag, value) configuration change.
type Parameter struct {
	Tag   ParameterTag
	Value int
}

// DecodeParameters converts the flat tag/value integer array used on the
// wire into parameter pairs. An odd-length array is malformed.
func DecodeParameters(argin []int) ([]Parameter, error) {
	if len(argin)%2 != 0 {
		return nil, fmt.Errorf("%w: parameter array has odd length %d", ErrConfiguration, len(argin))
	}
	params := make([]Parameter, 0, len(argin)/2)
	for i := 0; i < len(argin); i += 2 {
		params = append(params, Parameter{Tag: ParameterTag(argin[i]), Value: argin[i+1]})
	}
	return params, nil
}
