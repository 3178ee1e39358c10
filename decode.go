package tokenpair

import (
	"errors"
	"strings"

	"github.com/MrEthical07/tokenpair/token"
)

// Kind says which codec accepted a bearer string.
type Kind uint8

const (
	// KindNone means neither codec accepted the string.
	KindNone Kind = iota
	// KindAccess means the access codec accepted the string.
	KindAccess
	// KindRefresh means the refresh codec accepted the string.
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// Decoded is the result of an ordered decode attempt. Token is only
// meaningful when Kind is not KindNone; Err is only set when it is.
type Decoded struct {
	Kind  Kind
	Token Token
	Err   error
}

// Decoder tries the access codec first and the refresh codec second.
type Decoder struct {
	access  TokenCodec
	refresh TokenCodec
}

func NewDecoder(access, refresh TokenCodec) *Decoder {
	return &Decoder{access: access, refresh: refresh}
}

// Decode never fails loudly: every problem is folded into a KindNone result
// whose Err is ErrMalformedToken or ErrCryptoFailure.
func (d *Decoder) Decode(raw string) Decoded {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Decoded{Kind: KindNone, Err: ErrMalformedToken}
	}

	t, accessErr := d.access.Decode(raw)
	if accessErr == nil {
		return Decoded{Kind: KindAccess, Token: t}
	}
	t, refreshErr := d.refresh.Decode(raw)
	if refreshErr == nil {
		return Decoded{Kind: KindRefresh, Token: t}
	}

	// Report the failure of the codec whose shape the string has.
	cause := accessErr
	if strings.Count(raw, ".") == 4 {
		cause = refreshErr
	}
	if errors.Is(cause, token.ErrCryptoFailure) {
		return Decoded{Kind: KindNone, Err: ErrCryptoFailure}
	}
	return Decoded{Kind: KindNone, Err: ErrMalformedToken}
}
