// Package intel turns raw community chat messages into typed transaction
// and sentiment records. Structured embeds are authoritative when present;
// plain text falls back to regex extraction. A malformed message is
// skipped, never fatal for its batch.
package intel

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var (
	priceRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(ETH|WETH|BTC|SOL|MATIC|BNB|APE|USDC|USDT)\b`)
	addrRe    = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)
	txHashRe  = regexp.MustCompile(`\b0x[0-9a-fA-F]{64}\b`)
	tokenIDRe = regexp.MustCompile(`#(\d+)\b`)
	cashtagRe = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{0,9})\b`)
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
)

// marketplaceNames is checked in order against lowercased text.
var marketplaceNames = []string{
	"opensea", "blur", "magic eden", "looksrare", "rarible", "x2y2", "tensor",
}

// engagementSignals maps a textual marker to its signal name.
var engagementSignals = []struct {
	marker string
	name   string
}{
	{"🚀", "rocket"},
	{"🔥", "fire"},
	{"💎", "diamond_hands"},
	{"📈", "chart_up"},
	{"📉", "chart_down"},
	{"!!", "emphatic"},
}

type Extractor struct {
	tracer trace.Tracer
}

func NewExtractor(tracer trace.Tracer) *Extractor {
	return &Extractor{tracer: tracer}
}

// ExtractTransactions parses NFT-channel messages into transactions.
// Messages with nothing to extract are skipped and logged.
func (e *Extractor) ExtractTransactions(messages []domain.RawMessage) []domain.NFTTransaction {
	out := make([]domain.NFTTransaction, 0, len(messages))
	for _, msg := range messages {
		tx, ok := parseTransaction(msg)
		if !ok {
			log.Printf("skipping unparseable NFT message %s", msg.ID)
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ExtractPosts parses community-channel messages into posts.
func (e *Extractor) ExtractPosts(messages []domain.RawMessage) []domain.CommunityPost {
	out := make([]domain.CommunityPost, 0, len(messages))
	for _, msg := range messages {
		post, ok := parsePost(msg)
		if !ok {
			log.Printf("skipping empty community message %s", msg.ID)
			continue
		}
		out = append(out, post)
	}
	return out
}

func parseTransaction(msg domain.RawMessage) (domain.NFTTransaction, bool) {
	text := strings.TrimSpace(msg.Content)
	hasEmbed := len(msg.Embeds) > 0
	if text == "" && !hasEmbed {
		return domain.NFTTransaction{}, false
	}

	tx := domain.NFTTransaction{
		Timestamp: msg.Timestamp,
		RawText:   text,
	}

	if hasEmbed {
		embed := msg.Embeds[0]
		applyEmbed(&tx, embed)
		if text == "" {
			tx.RawText = strings.TrimSpace(embed.Title + " " + embed.Description)
		}
	}

	// Regex fallback fills whatever the embed did not provide.
	if tx.Price == nil {
		if price, currency, ok := extractPrice(text); ok {
			tx.Price = &price
			tx.Currency = currency
		}
	}
	if tx.TxHash == "" {
		tx.TxHash = txHashRe.FindString(text)
	}
	if tx.FromAddr == "" || tx.ToAddr == "" {
		addrs := addrRe.FindAllString(stripTxHashes(text), 2)
		if tx.FromAddr == "" && len(addrs) > 0 {
			tx.FromAddr = addrs[0]
		}
		if tx.ToAddr == "" && len(addrs) > 1 {
			tx.ToAddr = addrs[1]
		}
	}
	if tx.Marketplace == "" {
		tx.Marketplace = findMarketplace(text)
	}
	if tx.TokenID == "" {
		if m := tokenIDRe.FindStringSubmatch(text); m != nil {
			tx.TokenID = m[1]
		}
	}
	if tx.ImageURL == "" {
		tx.ImageURL = firstImage(msg)
	}

	tx.Type = classifyTxType(tx.RawText, tx.Price != nil)
	return tx, true
}

func applyEmbed(tx *domain.NFTTransaction, embed domain.Embed) {
	tx.ImageURL = embed.ImageURL
	if embed.Title != "" {
		tx.Collection = collectionFromTitle(embed.Title)
	}
	for _, f := range embed.Fields {
		value := strings.TrimSpace(f.Value)
		switch strings.ToLower(strings.TrimSpace(f.Name)) {
		case "price", "amount":
			if price, currency, ok := extractPrice(value); ok {
				tx.Price = &price
				tx.Currency = currency
			}
		case "collection":
			tx.Collection = value
		case "token id", "token", "item":
			tx.TokenID = strings.TrimPrefix(value, "#")
		case "from", "seller":
			tx.FromAddr = value
		case "to", "buyer":
			tx.ToAddr = value
		case "marketplace", "platform":
			tx.Marketplace = strings.ToLower(value)
		case "tx", "tx hash", "transaction":
			tx.TxHash = value
		}
	}
}

// collectionFromTitle strips a trailing "#1234" token reference, leaving
// the collection name.
func collectionFromTitle(title string) string {
	title = strings.TrimSpace(title)
	if idx := strings.LastIndex(title, "#"); idx > 0 {
		return strings.TrimSpace(title[:idx])
	}
	return title
}

func extractPrice(text string) (float64, string, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return price, strings.ToUpper(m[2]), true
}

func stripTxHashes(text string) string {
	return txHashRe.ReplaceAllString(text, "")
}

func findMarketplace(text string) string {
	lower := strings.ToLower(text)
	for _, name := range marketplaceNames {
		if strings.Contains(lower, name) {
			return name
		}
	}
	return ""
}

// classifyTxType applies an ordered keyword set: sale verbs win over
// mint, listing, and transfer. With no keyword at all, a priced message
// is a sale and an unpriced one a transfer.
func classifyTxType(text string, hasPrice bool) domain.TxType {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "sold", "sale", "bought", "purchased"):
		return domain.TxSale
	case containsAny(lower, "minted", "mint"):
		return domain.TxMint
	case containsAny(lower, "listed", "listing"):
		return domain.TxListing
	case containsAny(lower, "transferred", "transfer", "sent"):
		return domain.TxTransfer
	case hasPrice:
		return domain.TxSale
	default:
		return domain.TxTransfer
	}
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func parsePost(msg domain.RawMessage) (domain.CommunityPost, bool) {
	content := strings.TrimSpace(msg.Content)
	if content == "" && len(msg.Embeds) == 0 {
		return domain.CommunityPost{}, false
	}

	post := domain.CommunityPost{
		Author:    msg.Author,
		Content:   content,
		Sentiment: classifySentiment(content),
		HasImage:  firstImage(msg) != "",
		Timestamp: msg.Timestamp,
	}

	for _, m := range cashtagRe.FindAllStringSubmatch(content, -1) {
		post.TokensMentioned = appendUnique(post.TokensMentioned, strings.ToUpper(m[1]))
	}
	for _, m := range hashtagRe.FindAllStringSubmatch(content, -1) {
		// Numeric-only tags are token references, not keywords.
		if _, err := strconv.Atoi(m[1]); err == nil {
			continue
		}
		post.Keywords = appendUnique(post.Keywords, strings.ToLower(m[1]))
	}
	for _, sig := range engagementSignals {
		if strings.Contains(content, sig.marker) {
			post.EngagementSignals = append(post.EngagementSignals, sig.name)
		}
	}

	if url := urlRe.FindString(content); url != "" {
		post.ExternalURL = url
	} else if len(msg.Embeds) > 0 {
		post.ExternalURL = msg.Embeds[0].URL
	}

	return post, true
}

func firstImage(msg domain.RawMessage) string {
	for _, embed := range msg.Embeds {
		if embed.ImageURL != "" {
			return embed.ImageURL
		}
	}
	for _, att := range msg.Attachments {
		if strings.HasPrefix(att.ContentType, "image/") {
			return att.URL
		}
	}
	return ""
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
