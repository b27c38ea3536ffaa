// Package useragent picks the User-Agent header for platform requests.
package useragent

import (
	"math/rand"
	"slices"
)

// Class selects a corpus slice: "mobile", "pc", any literal User-Agent, or
// empty for the whole corpus.
type Class string

const (
	Mobile  Class = "mobile"
	Desktop Class = "pc"
	Any     Class = ""
)

// corpus layout: [0,7) mobile, 7 tablet, [8,13) desktop, 13 Edge.
var corpus = [...]string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 9_1 like Mac OS X) AppleWebKit/601.1.46 (KHTML, like Gecko) Version/9.0 Mobile/13B143 Safari/601.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 9_1 like Mac OS X) AppleWebKit/601.1.46 (KHTML, like Gecko) Version/9.0 Mobile/13B143 Safari/601.1",
	"Mozilla/5.0 (Linux; Android 5.0; SM-G900P Build/LRX21T) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/59.0.3071.115 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/59.0.3071.115 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 5.1.1; Nexus 6 Build/LYZ28E) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/59.0.3071.115 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 10_3_2 like Mac OS X) AppleWebKit/603.2.4 (KHTML, like Gecko) Mobile/14F89;GameHelper",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 10_0 like Mac OS X) AppleWebKit/602.1.38 (KHTML, like Gecko) Version/10.0 Mobile/14A300 Safari/602.1",
	"Mozilla/5.0 (iPad; CPU OS 10_0 like Mac OS X) AppleWebKit/602.1.38 (KHTML, like Gecko) Version/10.0 Mobile/14A300 Safari/602.1",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.12; rv:46.0) Gecko/20100101 Firefox/46.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/59.0.3071.115 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_5) AppleWebKit/603.2.4 (KHTML, like Gecko) Version/10.1.1 Safari/603.2.4",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:46.0) Gecko/20100101 Firefox/46.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/51.0.2704.103 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36 Edge/13.1058",
}

var (
	mobile  = corpus[0:7]
	desktop = corpus[8:13]
	all     = corpus[:]
)

// Choose returns a User-Agent for class. Index selection uses math/rand;
// the choice is not security sensitive.
func Choose(class Class) string {
	switch class {
	case Mobile:
		return mobile[rand.Intn(len(mobile))]
	case Desktop:
		return desktop[rand.Intn(len(desktop))]
	case Any:
		return all[rand.Intn(len(all))]
	default:
		return string(class)
	}
}

// Corpus returns a copy of the entries class draws from. A literal class
// yields a single entry.
func Corpus(class Class) []string {
	switch class {
	case Mobile:
		return slices.Clone(mobile)
	case Desktop:
		return slices.Clone(desktop)
	case Any:
		return slices.Clone(all)
	default:
		return []string{string(class)}
	}
}
