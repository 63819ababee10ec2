/*
onetime.go - One-time item key derivation

PURPOSE:
  Certain item classes may appear at most once per tab: dinner ("janta"),
  last-longer, jackpot, each distinct bet product, and the Buy In / Staff
  tournament add-ons. This file derives, from the items already on a tab,
  which classes are exhausted.

DERIVED, NOT STORED:
  Used keys are recomputed from the full current item list on every check.
  There is no persisted "used" flag that could desync if items are removed
  out of process. The O(n) scan is fine at tab-sized item counts.

ENFORCEMENT:
  Blocking is advisory at the UI boundary but the controller enforces it
  again before insertion, under the per-tab lock, so two concurrent
  operators cannot both add the same one-time item.

KEY TABLE:
  product name starts with "janta"   -> "janta"
  category lastlonger                -> "lastlonger"
  category jackpot                   -> "jackpot"
  category bet                       -> "bet:<lowercased product name>"
  add-on note starts with "buy in"   -> "buyin"
  add-on note starts with "staff"    -> "staff"
  everything else                    -> no key (repeatable)
*/
package comanda

import "strings"

// OneTimeKey classifies an item into a class that may appear at most once
// per tab. The empty key means the item is unrestricted.
type OneTimeKey string

const (
	KeyJanta      OneTimeKey = "janta"
	KeyLastLonger OneTimeKey = "lastlonger"
	KeyJackpot    OneTimeKey = "jackpot"
	KeyBuyIn      OneTimeKey = "buyin"
	KeyStaff      OneTimeKey = "staff"
)

// ItemKey returns the one-time key for an item, or "" if the item is
// repeatable. The "janta" name rule takes precedence over category rules.
func ItemKey(it TabItem) OneTimeKey {
	if it.IsAddOn() {
		note := strings.ToLower(strings.TrimSpace(it.Note))
		switch {
		case strings.HasPrefix(note, "buy in"):
			return KeyBuyIn
		case strings.HasPrefix(note, "staff"):
			return KeyStaff
		}
		return ""
	}

	if isJanta(it.Name) {
		return KeyJanta
	}
	switch it.Category {
	case CategoryLastLonger:
		return KeyLastLonger
	case CategoryJackpot:
		return KeyJackpot
	case CategoryBet:
		return OneTimeKey("bet:" + strings.ToLower(it.Name))
	}
	return ""
}

// UsedKeys derives the exhausted one-time classes from the current item
// list.
func UsedKeys(items []TabItem) map[OneTimeKey]struct{} {
	used := make(map[OneTimeKey]struct{})
	for _, it := range items {
		if k := ItemKey(it); k != "" {
			used[k] = struct{}{}
		}
	}
	return used
}

// IsBlocked reports whether adding the candidate item would violate the
// one-time constraint given the already-used keys.
func IsBlocked(candidate TabItem, used map[OneTimeKey]struct{}) bool {
	k := ItemKey(candidate)
	if k == "" {
		return false
	}
	_, taken := used[k]
	return taken
}
