// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
)

var (
	// optionSymbolRegexp matches "ROOT YYMMDD[C|P]STRIKE" with the strike in thousandths.
	optionSymbolRegexp = regexp.MustCompile(`^([A-Z]+)\s+(\d{6})([CP])(\d{8})$`)
	optionRootRegexp   = regexp.MustCompile(`^[A-Z]+$`)
)

// strikeFactor is the number of strike units per dollar in the encoded symbol.
const strikeFactor = 1000

// PutCall is the right of an option contract.
type PutCall string

const (
	// PutCallPut is a put option.
	PutCallPut PutCall = "PUT"
	// PutCallCall is a call option.
	PutCallCall PutCall = "CALL"
)

// Code returns the single-letter code of the right ("P" or "C").
func (p PutCall) Code() string {
	switch p {
	case PutCallPut:
		return "P"
	case PutCallCall:
		return "C"
	default:
		return ""
	}
}

// OptionContract is a decoded option symbol.
type OptionContract struct {
	// Root is the underlying symbol (e.g., "AAPL").
	Root string `json:"root"`
	// PutCall is the option right.
	PutCall PutCall `json:"put_call"`
	// Strike is the strike price in dollars.
	Strike float64 `json:"strike"`
	// Expiry is the expiration date.
	Expiry xtime.Date `json:"expiry"`
}

// DecodeOptionSymbol decodes an option symbol such as "AAPL 230616C00185000".
//
// Returns false if the symbol does not match the option symbol format. Most
// equity symbols do not, so a false result is expected and is not an error.
func DecodeOptionSymbol(symbol string) (OptionContract, bool) {
	matches := optionSymbolRegexp.FindStringSubmatch(strings.TrimSpace(symbol))
	if matches == nil {
		return OptionContract{}, false
	}
	expiry, err := time.Parse("060102", matches[2])
	if err != nil {
		// Six digits that are not a calendar date, e.g. 231341.
		return OptionContract{}, false
	}
	strikeThousandths, err := strconv.ParseInt(matches[4], 10, 64)
	if err != nil {
		return OptionContract{}, false
	}
	putCall := PutCallCall
	if matches[3] == "P" {
		putCall = PutCallPut
	}
	return OptionContract{
		Root:    matches[1],
		PutCall: putCall,
		Strike:  mathdec.Round(float64(strikeThousandths) / strikeFactor),
		Expiry:  xtime.TimeToDate(expiry),
	}, true
}

// EncodeOptionSymbol encodes an option contract into its symbol form, the
// inverse of DecodeOptionSymbol.
func EncodeOptionSymbol(contract OptionContract) (string, error) {
	code := contract.PutCall.Code()
	if code == "" {
		return "", fmt.Errorf("invalid put/call %q", contract.PutCall)
	}
	if !optionRootRegexp.MatchString(contract.Root) {
		return "", fmt.Errorf("invalid option root %q", contract.Root)
	}
	if contract.Expiry.Year < 2000 || contract.Expiry.Year > 2099 || !contract.Expiry.IsValid() {
		return "", fmt.Errorf("expiry %s cannot be encoded", contract.Expiry)
	}
	strikeThousandths := int64(math.Round(contract.Strike * strikeFactor))
	if strikeThousandths <= 0 || strikeThousandths > 99_999_999 {
		return "", fmt.Errorf("strike %v cannot be encoded", contract.Strike)
	}
	return fmt.Sprintf(
		"%s %s%s%08d",
		contract.Root,
		contract.Expiry.In(time.UTC).Format("060102"),
		code,
		strikeThousandths,
	), nil
}
