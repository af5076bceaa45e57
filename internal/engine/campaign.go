package engine

import "github.com/yourusername/agent-dungeon/internal/catalog"

// handleReputation reports the campaign's faction standing. Games without a
// campaign report an empty table.
func (e *Engine) handleReputation(c *call) error {
	rep := map[string]int{}
	name := ""
	if c.gs.Campaign != nil {
		name = c.gs.Campaign.Name
		for k, v := range c.gs.Campaign.Reputation {
			rep[k] = v
		}
	}
	c.detail("campaign", name)
	c.detail("reputation", rep)
	standing := make(map[string]string, len(rep))
	for faction, v := range rep {
		standing[catalog.DisplayName(faction)] = reputationLabel(v)
	}
	c.detail("standing", standing)
	return nil
}

func reputationLabel(v int) string {
	switch {
	case v >= 5:
		return "honored"
	case v > 0:
		return "friendly"
	case v == 0:
		return "neutral"
	case v > -5:
		return "wary"
	default:
		return "hostile"
	}
}
