package domain

import "time"

// ChannelKind routes a chat channel to the matching extraction path.
type ChannelKind string

const (
	ChannelKindNFT       ChannelKind = "nft"
	ChannelKindCommunity ChannelKind = "community"
)

// RawMessage is one chat message as delivered by the chat source,
// before any extraction.
type RawMessage struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	Content     string       `json:"content"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Embed is a structured block attached to a chat message. When present its
// fields are authoritative over the plain-text content.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
}

type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// TxType classifies an NFT transaction.
type TxType string

const (
	TxSale     TxType = "sale"
	TxMint     TxType = "mint"
	TxListing  TxType = "listing"
	TxTransfer TxType = "transfer"
)

// NFTTransaction is one structured transaction extracted from an
// NFT-channel message.
type NFTTransaction struct {
	Type        TxType    `json:"type"`
	Collection  string    `json:"collection,omitempty"`
	TokenID     string    `json:"token_id,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	FromAddr    string    `json:"from_addr,omitempty"`
	ToAddr      string    `json:"to_addr,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Marketplace string    `json:"marketplace,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	RawText     string    `json:"raw_text"`
}

// Sentiment is the three-way classification of a community post.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// CommunityPost is one structured social post extracted from a
// community-channel message.
type CommunityPost struct {
	Author            string    `json:"author"`
	Content           string    `json:"content"`
	Sentiment         Sentiment `json:"sentiment"`
	TokensMentioned   []string  `json:"tokens_mentioned,omitempty"`
	Keywords          []string  `json:"keywords,omitempty"`
	EngagementSignals []string  `json:"engagement_signals,omitempty"`
	HasImage          bool      `json:"has_image"`
	ExternalURL       string    `json:"external_url,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// TokenCount ranks one token symbol by mention frequency.
type TokenCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// KeywordCount ranks one keyword by frequency.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SentimentCounts buckets posts by classified sentiment.
type SentimentCounts struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
	Neutral int `json:"neutral"`
}

// IntelSummary is the reduction of one extracted batch.
type IntelSummary struct {
	TxCount          int              `json:"tx_count"`
	TotalVolume      float64          `json:"total_volume"`
	SentimentCounts  SentimentCounts  `json:"sentiment_counts"`
	TopTokens        []TokenCount     `json:"top_tokens,omitempty"`
	TrendingKeywords []KeywordCount   `json:"trending_keywords,omitempty"`
	HighValueTx      []NFTTransaction `json:"high_value_tx,omitempty"`
}

// IntelReport is the outcome of one full chat-intelligence run across the
// configured channels. Per-channel failures land in Errors without
// invalidating the rest of the report.
type IntelReport struct {
	Transactions []NFTTransaction `json:"transactions"`
	Posts        []CommunityPost  `json:"posts"`
	Summary      IntelSummary     `json:"summary"`
	Errors       []string         `json:"errors,omitempty"`
}
