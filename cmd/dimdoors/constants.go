package main

// Output format constants.
const (
	jsonFormat = "json"
	yamlFormat = "yaml"
	snbtFormat = "snbt"
	textFormat = "text"
)

const serviceName = "dimdoors"
