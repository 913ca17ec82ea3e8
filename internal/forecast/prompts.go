package forecast

import "fmt"

const tradingSystemPrompt = `You are a professional crypto trading advisor analyzing BTC/USD, ETH/USD, and SOL/USD pairs. You must assess market conditions using technical indicators, price action, and sentiment analysis. Respond with ONLY raw JSON, no markdown or code blocks.`

const lendingSystemPrompt = `You are a DeFi lending strategist optimizing positions across a lending protocol. Prioritize capital preservation over maximum yield. Respond with ONLY raw JSON, no markdown or code blocks.`

func tradingUserPrompt(indicatorsJSON string) string {
	return fmt.Sprintf(`Analyze these trading pairs and recommend the best trading opportunity if any:
Data: %s

Consider the following factors in your analysis:

1. Technical Indicators:
- Moving Averages (20/50/200 SMA)
- Relative Strength Index (RSI)
- Momentum
- Volume Trends

2. Price Action & Trend Analysis:
- Support/Resistance Levels
- Breakouts/Reversals
- Trend Strength

3. Cross-Pair Analysis:
- Correlations
- Relative Strength
- Market Regime
- Leading/Lagging Pairs

4. Risk Assessment:
- Volatility Levels
- Position Sizing
- Market Depth

Return ONLY this JSON structure (no markdown):
{
  "action": "BUY" | "SELL" | "WAIT",
  "pair": "BTCUSD" | "ETHUSD" | "SOLUSD",
  "reasoning": {
    "marketCondition": "brief state of the chosen market",
    "technicalAnalysis": "key technical factors",
    "riskAssessment": "risk level and considerations",
    "pairSelection": "why this pair was chosen over others",
    "comparativeAnalysis": {
      "volatilityComparison": "volatility across pairs",
      "trendAlignment": "how trends align/diverge",
      "relativeStrength": "strongest setup and why",
      "correlationImpact": "how correlations affect the decision"
    }
  }
}`, indicatorsJSON)
}

func lendingUserPrompt(metricsJSON string) string {
	return fmt.Sprintf(`Analyze the following lending market data and recommend optimal lending/borrowing strategies:

Market Data:
%s

Consider these key factors:

1. Lending Opportunities:
- Compare interest rates across all tokens
- Evaluate supply/demand dynamics and utilization rates
- Assess stability and sustainability of yields
- Consider liquidity depth and withdrawal risks

2. Borrowing Opportunities:
- Identify lowest borrowing costs across tokens
- Evaluate liquidation risks based on collateral ratios
- Consider market volatility impact on positions

3. Interest Rate Arbitrage:
- Find profitable spreads between lending and borrowing rates
- Calculate net yield after fees and gas costs

4. Risk Assessment:
- Market volatility and trend analysis
- Collateral health and liquidation thresholds
- Protocol utilization and liquidity risks

Return ONLY this JSON structure (no markdown):
{
  "action": "LEND" | "BORROW" | "WITHDRAW" | "WAIT",
  "token": "string",
  "amount": "number as string",
  "reasoning": {
    "marketAnalysis": "detailed analysis of market conditions and opportunities",
    "riskAssessment": "comprehensive risk evaluation",
    "yieldStrategy": "expected returns and strategy rationale"
  },
  "actions": [{
    "type": "DEPOSIT" | "WITHDRAW" | "BORROW",
    "token": "string",
    "amount": "string",
    "recipient": "string",
    "expectedYield": "string",
    "liquidationRisk": "LOW" | "MEDIUM" | "HIGH"
  }]
}

Prioritize:
1. Capital preservation over maximum yield
2. Sustainable yields over temporary rate spikes
3. Liquidity availability for position management
4. Risk-adjusted returns considering all factors`, metricsJSON)
}
