// Package whisker defines the neutral core types shared across the bot:
// role-tagged conversation turns, the provider-agnostic LLM generation
// contract, and the collaborator interfaces the memory subsystem talks to.
package whisker
