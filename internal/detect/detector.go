// Package detect holds the detection strategies that turn raw subject content
// into community candidates. Every detector is a pure function over the same
// input: no I/O, no ordering dependency between detectors, and no errors by
// contract. Absence of a signal is an empty slice.
package detect

import (
	"commwatch/internal/domain"
	"commwatch/internal/provider"
)

// Func is the uniform detector signature.
type Func func(profile provider.Profile, posts []provider.Post) []domain.DetectionCandidate

// Detector pairs a method tag with its strategy. Detectors form a fixed
// enumeration so the set can be iterated statically and tested exhaustively.
type Detector struct {
	Method domain.DetectionMethod
	Run    Func
}

// All returns the full detector set in a fixed order. The order only affects
// log readability; the merger is order independent.
func All() []Detector {
	return []Detector{
		{Method: domain.MethodUrlLink, Run: URLLink},
		{Method: domain.MethodProfileLink, Run: ProfileLink},
		{Method: domain.MethodTweetPost, Run: TweetPost},
		{Method: domain.MethodSocialGraph, Run: SocialGraph},
		{Method: domain.MethodContentTheme, Run: ContentTheme},
		{Method: domain.MethodTextPattern, Run: TextPattern},
	}
}

// Run executes every detector and concatenates the candidate lists.
func Run(profile provider.Profile, posts []provider.Post) []domain.DetectionCandidate {
	var out []domain.DetectionCandidate
	for _, d := range All() {
		out = append(out, d.Run(profile, posts)...)
	}
	return out
}
