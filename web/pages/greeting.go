// Package pages renders the HTML pages of the web front end.
package pages

import (
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

const baseMessageClass = "text-2xl font-semibold text-gray-900"

// GreetingData is the data rendered by Greeting.
type GreetingData struct {
	// Message is the fetched greeting. It is empty until a fetch succeeds.
	Message string
	// Class is merged over the default message classes.
	Class string
	// Live makes the page subscribe to /ws for the message.
	Live bool
}

// MessageClass returns the classes applied to the message element.
func (d GreetingData) MessageClass() string {
	return twmerge.Merge(baseMessageClass, d.Class)
}
