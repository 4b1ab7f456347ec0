// Package provider binds the battle engine's external collaborators to
// concrete services.
//
// Generation and adjudication are available through the Anthropic Messages
// API ([AnthropicClient]), the OpenAI Chat Completions API ([OpenAIClient])
// and an offline [TemplateGenerator]. Audio synthesis uses the OpenAI Speech
// API ([OpenAISynthesizer]) or [SilentSynthesizer] when audio is disabled.
//
// Prompt rendering ([SystemPrompt], [TurnPrompt], [JudgePrompt]) is shared by
// all model-backed bindings so that switching providers never changes what
// the model is asked.
package provider
