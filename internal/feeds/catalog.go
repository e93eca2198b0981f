package feeds

import "github.com/shanchoynoor/choynews-bot/internal/core/domain"

// Catalog returns the registered feed sources. Reliability weights are on a
// 0.5 to 1.5 scale and express editorial trust, not popularity.
func Catalog() []domain.Source {
	return []domain.Source{
		// Local (Bangladesh)
		{ID: "prothom-alo", Name: "Prothom Alo", Category: domain.CategoryLocal, URL: "https://www.prothomalo.com/feed", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "daily-star", Name: "The Daily Star", Category: domain.CategoryLocal, URL: "https://www.thedailystar.net/frontpage/rss.xml", ReliabilityWeight: 1.4, Enabled: true},
		{ID: "bdnews24", Name: "BDNews24", Category: domain.CategoryLocal, URL: "https://bdnews24.com/feed", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "dhaka-tribune", Name: "Dhaka Tribune", Category: domain.CategoryLocal, URL: "https://www.dhakatribune.com/articles.rss", ReliabilityWeight: 1.2, Enabled: true},
		{ID: "jugantor", Name: "Jugantor", Category: domain.CategoryLocal, URL: "https://www.jugantor.com/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "samakal", Name: "Samakal", Category: domain.CategoryLocal, URL: "https://samakal.com/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "jagonews24", Name: "Jagonews24", Category: domain.CategoryLocal, URL: "https://www.jagonews24.com/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "kaler-kantho", Name: "Kaler Kantho", Category: domain.CategoryLocal, URL: "https://www.kalerkantho.com/rss.xml", ReliabilityWeight: 1.1, Enabled: true},
		{ID: "ittefaq", Name: "Ittefaq", Category: domain.CategoryLocal, URL: "https://www.ittefaq.com.bd/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "bd-pratidin", Name: "Bangladesh Pratidin", Category: domain.CategoryLocal, URL: "https://www.bd-pratidin.com/rss.xml", ReliabilityWeight: 0.9, Enabled: true},

		// Global
		{ID: "bbc", Name: "BBC", Category: domain.CategoryGlobal, URL: "http://feeds.bbci.co.uk/news/rss.xml", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "reuters", Name: "Reuters", Category: domain.CategoryGlobal, URL: "http://feeds.reuters.com/reuters/topNews", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "cnn", Name: "CNN", Category: domain.CategoryGlobal, URL: "http://rss.cnn.com/rss/edition.rss", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "al-jazeera", Name: "Al Jazeera", Category: domain.CategoryGlobal, URL: "https://www.aljazeera.com/xml/rss/all.xml", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "guardian", Name: "The Guardian", Category: domain.CategoryGlobal, URL: "https://www.theguardian.com/world/rss", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "nypost", Name: "New York Post", Category: domain.CategoryGlobal, URL: "https://nypost.com/feed/", ReliabilityWeight: 1.1, Enabled: true},
		{ID: "washington-post", Name: "The Washington Post", Category: domain.CategoryGlobal, URL: "https://feeds.washingtonpost.com/rss/world", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "nbc-news", Name: "NBC News", Category: domain.CategoryGlobal, URL: "https://feeds.nbcnews.com/nbcnews/public/news", ReliabilityWeight: 1.2, Enabled: true},
		{ID: "nytimes", Name: "The New York Times", Category: domain.CategoryGlobal, URL: "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml", ReliabilityWeight: 1.4, Enabled: true},
		{ID: "economist", Name: "The Economist", Category: domain.CategoryGlobal, URL: "https://www.economist.com/latest/rss.xml", ReliabilityWeight: 1.4, Enabled: true},

		// Tech
		{ID: "techcrunch", Name: "TechCrunch", Category: domain.CategoryTech, URL: "http://feeds.feedburner.com/TechCrunch/", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "verge", Name: "The Verge", Category: domain.CategoryTech, URL: "https://www.theverge.com/rss/index.xml", ReliabilityWeight: 1.4, Enabled: true},
		{ID: "wired", Name: "Wired", Category: domain.CategoryTech, URL: "https://www.wired.com/feed/rss", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "cnet", Name: "CNET", Category: domain.CategoryTech, URL: "https://www.cnet.com/rss/news/", ReliabilityWeight: 1.1, Enabled: true},
		{ID: "ars-technica", Name: "Ars Technica", Category: domain.CategoryTech, URL: "http://feeds.arstechnica.com/arstechnica/index/", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "mashable", Name: "Mashable", Category: domain.CategoryTech, URL: "https://mashable.com/feeds/rss/all", ReliabilityWeight: 1.1, Enabled: true},
		{ID: "engadget", Name: "Engadget", Category: domain.CategoryTech, URL: "https://www.engadget.com/rss.xml", ReliabilityWeight: 1.2, Enabled: true},
		{ID: "techradar", Name: "TechRadar", Category: domain.CategoryTech, URL: "https://www.techradar.com/rss", ReliabilityWeight: 1.0, Enabled: true},

		// Sports
		{ID: "espn", Name: "ESPN", Category: domain.CategorySports, URL: "https://www.espn.com/espn/rss/news", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "bbc-sport", Name: "BBC Sport", Category: domain.CategorySports, URL: "http://feeds.bbci.co.uk/sport/rss.xml?edition=uk", ReliabilityWeight: 1.4, Enabled: true},
		{ID: "sky-sports", Name: "Sky Sports", Category: domain.CategorySports, URL: "https://www.skysports.com/rss/12040", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "samakal-sports", Name: "Samakal Sports", Category: domain.CategorySports, URL: "https://samakal.com/sports/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "prothom-alo-sports", Name: "Prothom Alo Sports", Category: domain.CategorySports, URL: "https://www.prothomalo.com/sports/feed", ReliabilityWeight: 1.2, Enabled: true},
		{ID: "kaler-kantho-sports", Name: "Kaler Kantho Sports", Category: domain.CategorySports, URL: "https://www.kalerkantho.com/sports/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "ittefaq-sports", Name: "Ittefaq Sports", Category: domain.CategorySports, URL: "https://www.ittefaq.com.bd/sports/rss.xml", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "banglanews-sports", Name: "Banglanews24 Sports", Category: domain.CategorySports, URL: "https://www.banglanews24.com/sports/rss.xml", ReliabilityWeight: 0.9, Enabled: true},

		// Finance & crypto
		{ID: "cointelegraph", Name: "Cointelegraph", Category: domain.CategoryFinanceCrypto, URL: "https://cointelegraph.com/rss", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "coindesk", Name: "CoinDesk", Category: domain.CategoryFinanceCrypto, URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", ReliabilityWeight: 1.4, Enabled: true},
		{ID: "decrypt", Name: "Decrypt", Category: domain.CategoryFinanceCrypto, URL: "https://decrypt.co/feed", ReliabilityWeight: 1.2, Enabled: true},
		{ID: "beincrypto", Name: "BeInCrypto", Category: domain.CategoryFinanceCrypto, URL: "https://beincrypto.com/feed/", ReliabilityWeight: 1.0, Enabled: true},
		{ID: "cryptoslate", Name: "CryptoSlate", Category: domain.CategoryFinanceCrypto, URL: "https://cryptoslate.com/feed/", ReliabilityWeight: 1.1, Enabled: true},
		{ID: "the-block", Name: "The Block", Category: domain.CategoryFinanceCrypto, URL: "https://www.theblock.co/rss.xml", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "reuters-business", Name: "Reuters Business", Category: domain.CategoryFinanceCrypto, URL: "http://feeds.reuters.com/reuters/businessNews", ReliabilityWeight: 1.5, Enabled: true},
		{ID: "marketwatch", Name: "MarketWatch", Category: domain.CategoryFinanceCrypto, URL: "http://feeds.marketwatch.com/marketwatch/topstories/", ReliabilityWeight: 1.3, Enabled: true},
		{ID: "bonik-barta", Name: "Bonik Barta", Category: domain.CategoryFinanceCrypto, URL: "https://www.bonikbarta.net/feed", ReliabilityWeight: 1.0, Enabled: true},
	}
}
