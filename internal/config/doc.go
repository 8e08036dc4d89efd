// Package config loads and validates the confidant YAML configuration.
//
// Configuration is read from a single YAML file. Environment variables in
// ${VAR_NAME} form are expanded before parsing, which keeps secrets like
// the OpenAI API key out of the file itself:
//
//	openai:
//	  api_key: ${OPENAI_API_KEY}
//
// Validation runs at load time. A missing API key or database path is a
// fatal configuration error — the process refuses to start rather than
// failing later at the first remote call.
package config
