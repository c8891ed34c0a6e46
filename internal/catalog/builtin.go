package catalog

import "github.com/agentoven/agentdesk/pkg/models"

func usd(v float64) *float64 { return &v }

// builtinProviders is the provider table shipped with agentdesk. Costs are
// USD per million tokens.
func builtinProviders() []models.Provider {
	return []models.Provider{
		{
			ID: "openai", DisplayName: "OpenAI", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.openai.com/v1",
			CredentialEnv: "OPENAI_API_KEY", Website: "https://openai.com",
			Models: []models.Model{
				{ID: "gpt-4o", DisplayName: "GPT-4o", ContextLength: 128000, InputCostPerMillionTokens: usd(2.5), OutputCostPerMillionTokens: usd(10), SupportsVision: true, Description: "Most capable GPT-4 model with vision"},
				{ID: "gpt-4o-mini", DisplayName: "GPT-4o Mini", ContextLength: 128000, InputCostPerMillionTokens: usd(0.15), OutputCostPerMillionTokens: usd(0.6), SupportsVision: true, Description: "Faster and cheaper GPT-4 model"},
				{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", ContextLength: 16384, InputCostPerMillionTokens: usd(0.5), OutputCostPerMillionTokens: usd(1.5), Description: "Fast and efficient model"},
			},
		},
		{
			ID: "anthropic", DisplayName: "Anthropic", RequiresCredential: true,
			Adapter:       AdapterAnthropic,
			CredentialEnv: "ANTHROPIC_API_KEY", Website: "https://anthropic.com",
			Models: []models.Model{
				{ID: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet", ContextLength: 200000, InputCostPerMillionTokens: usd(3), OutputCostPerMillionTokens: usd(15), SupportsVision: true, Description: "Most intelligent Claude model"},
				{ID: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", ContextLength: 200000, InputCostPerMillionTokens: usd(0.25), OutputCostPerMillionTokens: usd(1.25), SupportsVision: true, Description: "Fastest Claude model"},
			},
		},
		{
			ID: "google", DisplayName: "Google", RequiresCredential: true,
			Adapter:       AdapterGoogle,
			CredentialEnv: "GEMINI_API_KEY", Website: "https://ai.google.dev",
			Models: []models.Model{
				{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", ContextLength: 2000000, InputCostPerMillionTokens: usd(1.25), OutputCostPerMillionTokens: usd(5), SupportsVision: true, Description: "Large context window model"},
				{ID: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", ContextLength: 1000000, InputCostPerMillionTokens: usd(0.075), OutputCostPerMillionTokens: usd(0.3), SupportsVision: true, Description: "Fast and efficient model"},
			},
		},
		{
			ID: "ollama", DisplayName: "Ollama", RequiresCredential: false,
			Adapter: AdapterOllama, BaseURL: "http://localhost:11434",
			Website: "https://ollama.ai",
			Models: []models.Model{
				{ID: "llama3.2", DisplayName: "Llama 3.2", ContextLength: 8192, Description: "Local Llama model"},
				{ID: "codestral", DisplayName: "Codestral", ContextLength: 32768, Description: "Code-specialized model"},
				{ID: "qwen2.5-coder", DisplayName: "Qwen 2.5 Coder", ContextLength: 32768, Description: "Advanced coding model"},
			},
		},
		{
			ID: "deepseek", DisplayName: "DeepSeek", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.deepseek.com/v1",
			CredentialEnv: "DEEPSEEK_API_KEY", Website: "https://deepseek.com",
			Models: []models.Model{
				{ID: "deepseek-coder", DisplayName: "DeepSeek Coder", ContextLength: 16384, InputCostPerMillionTokens: usd(0.14), OutputCostPerMillionTokens: usd(0.28), Description: "Specialized coding model"},
				{ID: "deepseek-chat", DisplayName: "DeepSeek Chat", ContextLength: 32768, InputCostPerMillionTokens: usd(0.14), OutputCostPerMillionTokens: usd(0.28), Description: "General purpose model"},
			},
		},
		{
			ID: "groq", DisplayName: "Groq", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.groq.com/openai/v1",
			CredentialEnv: "GROQ_API_KEY", Website: "https://groq.com",
			Models: []models.Model{
				{ID: "llama-3.1-70b-versatile", DisplayName: "Llama 3.1 70B", ContextLength: 32768, InputCostPerMillionTokens: usd(0.59), OutputCostPerMillionTokens: usd(0.79), Description: "Ultra-fast inference"},
				{ID: "llama-3.1-8b-instant", DisplayName: "Llama 3.1 8B", ContextLength: 32768, InputCostPerMillionTokens: usd(0.05), OutputCostPerMillionTokens: usd(0.08), Description: "Lightning fast model"},
			},
		},
		{
			ID: "cohere", DisplayName: "Cohere", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.cohere.ai/compatibility/v1",
			CredentialEnv: "COHERE_API_KEY", Website: "https://cohere.com",
			Models: []models.Model{
				{ID: "command-r-plus", DisplayName: "Command R+", ContextLength: 128000, InputCostPerMillionTokens: usd(3), OutputCostPerMillionTokens: usd(15), Description: "Most capable Command model"},
				{ID: "command-r", DisplayName: "Command R", ContextLength: 128000, InputCostPerMillionTokens: usd(0.5), OutputCostPerMillionTokens: usd(1.5), Description: "Balanced performance and cost"},
				{ID: "command-light", DisplayName: "Command Light", ContextLength: 4096, InputCostPerMillionTokens: usd(0.3), OutputCostPerMillionTokens: usd(0.6), Description: "Fast and lightweight"},
			},
		},
		{
			ID: "mistral", DisplayName: "Mistral AI", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.mistral.ai/v1",
			CredentialEnv: "MISTRAL_API_KEY", Website: "https://mistral.ai",
			Models: []models.Model{
				{ID: "mistral-large-latest", DisplayName: "Mistral Large", ContextLength: 32768, InputCostPerMillionTokens: usd(4), OutputCostPerMillionTokens: usd(12), Description: "Most capable Mistral model"},
				{ID: "mistral-medium-latest", DisplayName: "Mistral Medium", ContextLength: 32768, InputCostPerMillionTokens: usd(2.7), OutputCostPerMillionTokens: usd(8.1), Description: "Balanced performance"},
				{ID: "mistral-small-latest", DisplayName: "Mistral Small", ContextLength: 32768, InputCostPerMillionTokens: usd(1), OutputCostPerMillionTokens: usd(3), Description: "Cost-effective option"},
			},
		},
		{
			ID: "perplexity", DisplayName: "Perplexity", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.perplexity.ai",
			CredentialEnv: "PERPLEXITY_API_KEY", Website: "https://perplexity.ai",
			Models: []models.Model{
				{ID: "llama-3.1-sonar-large-128k-online", DisplayName: "Sonar Large Online", ContextLength: 127072, InputCostPerMillionTokens: usd(1), OutputCostPerMillionTokens: usd(1), Description: "Online search capabilities"},
				{ID: "llama-3.1-sonar-small-128k-online", DisplayName: "Sonar Small Online", ContextLength: 127072, InputCostPerMillionTokens: usd(0.2), OutputCostPerMillionTokens: usd(0.2), Description: "Fast online search"},
				{ID: "llama-3.1-70b-instruct", DisplayName: "Llama 3.1 70B Instruct", ContextLength: 131072, InputCostPerMillionTokens: usd(1), OutputCostPerMillionTokens: usd(1), Description: "Offline instruction following"},
			},
		},
		{
			ID: "xai", DisplayName: "xAI", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.x.ai/v1",
			CredentialEnv: "XAI_API_KEY", Website: "https://x.ai",
			Models: []models.Model{
				{ID: "grok-beta", DisplayName: "Grok Beta", ContextLength: 131072, InputCostPerMillionTokens: usd(5), OutputCostPerMillionTokens: usd(15), Description: "Grok conversational AI"},
			},
		},
		{
			ID: "together", DisplayName: "Together AI", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.together.xyz/v1",
			CredentialEnv: "TOGETHER_API_KEY", Website: "https://together.ai",
			Models: []models.Model{
				{ID: "meta-llama/Llama-3-70b-chat-hf", DisplayName: "Llama 3 70B", ContextLength: 8192, InputCostPerMillionTokens: usd(0.9), OutputCostPerMillionTokens: usd(0.9), Description: "Open source Llama model"},
				{ID: "meta-llama/Llama-3-8b-chat-hf", DisplayName: "Llama 3 8B", ContextLength: 8192, InputCostPerMillionTokens: usd(0.2), OutputCostPerMillionTokens: usd(0.2), Description: "Smaller Llama variant"},
				{ID: "mistralai/Mixtral-8x7B-Instruct-v0.1", DisplayName: "Mixtral 8x7B", ContextLength: 32768, InputCostPerMillionTokens: usd(0.6), OutputCostPerMillionTokens: usd(0.6), Description: "Mixture of experts model"},
			},
		},
		{
			ID: "huggingface", DisplayName: "Hugging Face", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://router.huggingface.co/v1",
			CredentialEnv: "HF_TOKEN", Website: "https://huggingface.co",
			Models: []models.Model{
				{ID: "microsoft/DialoGPT-large", DisplayName: "DialoGPT Large", ContextLength: 1024, Description: "Conversational AI model"},
				{ID: "facebook/blenderbot-400M-distill", DisplayName: "BlenderBot 400M", ContextLength: 512, Description: "Distilled conversation model"},
				{ID: "microsoft/DialoGPT-medium", DisplayName: "DialoGPT Medium", ContextLength: 1024, Description: "Medium-sized dialogue model"},
			},
		},
		{
			ID: "fireworks", DisplayName: "Fireworks AI", RequiresCredential: true,
			Adapter: AdapterOpenAI, BaseURL: "https://api.fireworks.ai/inference/v1",
			CredentialEnv: "FIREWORKS_API_KEY", Website: "https://fireworks.ai",
			Models: []models.Model{
				{ID: "accounts/fireworks/models/llama-v3p1-70b-instruct", DisplayName: "Llama 3.1 70B", ContextLength: 131072, InputCostPerMillionTokens: usd(0.9), OutputCostPerMillionTokens: usd(0.9), Description: "High-performance Llama model"},
				{ID: "accounts/fireworks/models/llama-v3p1-8b-instruct", DisplayName: "Llama 3.1 8B", ContextLength: 131072, InputCostPerMillionTokens: usd(0.2), OutputCostPerMillionTokens: usd(0.2), Description: "Fast Llama variant"},
				{ID: "accounts/fireworks/models/mixtral-8x7b-instruct", DisplayName: "Mixtral 8x7B", ContextLength: 32768, InputCostPerMillionTokens: usd(0.5), OutputCostPerMillionTokens: usd(0.5), Description: "Efficient mixture model"},
			},
		},
	}
}
