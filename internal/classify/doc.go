// Package classify maps a raw User-Agent string to the handful of facts the
// breakout sequencer branches on: the device platform and whether the request
// comes from a known in-app browser.
//
// Classification is a pure function of the string. In-app detection is an
// ordered list of signatures; the first match names the app. Platform and bot
// detection lean on github.com/mileusna/useragent, with explicit device tokens
// checked first so that a spoofed or unusual UA still lands on iOS when it
// claims an iPhone, iPad or iPod.
package classify
