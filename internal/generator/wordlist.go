package generator

// wordList is the embedded passphrase vocabulary. Words are lowercase,
// 6-9 letters, and free of homophones within the list.
var wordList = []string{
	"ability", "account", "achieve", "across", "action", "activity", "actual", "address",
	"advance", "advice", "afford", "afraid", "against", "agency", "agenda", "almost",
	"already", "although", "always", "amazing", "amount", "analysis", "ancient", "animal",
	"another", "answer", "anxiety", "anyone", "anyway", "appear", "approach", "approve",
	"archive", "argument", "around", "arrange", "arrival", "article", "artist", "assault",
	"attempt", "attract", "auction", "audience", "author", "autumn", "average", "awesome",
	"balance", "balloon", "banana", "banner", "bargain", "barrier", "battery", "beauty",
	"because", "bedroom", "believe", "benefit", "besides", "between", "bicycle", "billion",
	"biology", "blanket", "blossom", "bottle", "boulder", "bracket", "brother", "browser",
	"buffalo", "builder", "burning", "business", "cabinet", "calcium", "calendar", "camera",
	"campaign", "capable", "capital", "captain", "capture", "carbon", "careful", "carrier",
	"cartoon", "cascade", "catalog", "category", "ceiling", "cellular", "century", "certain",
	"chairman", "chamber", "champion", "channel", "chapter", "charity", "chicken", "children",
	"chimney", "citizen", "clarity", "classic", "climate", "cluster", "coastal", "coconut",
	"collapse", "collect", "college", "combine", "comfort", "command", "comment", "common",
	"company", "compare", "compete", "complete", "complex", "concept", "concern", "concert",
	"conduct", "confirm", "connect", "consider", "console", "contain", "content", "contest",
	"context", "control", "convert", "cooking", "correct", "costume", "cottage", "council",
	"counter", "country", "courage", "creative", "cricket", "critical", "crystal", "culture",
	"current", "curtain", "customer", "cutting", "dancing", "daughter", "daylight", "deadline",
}
