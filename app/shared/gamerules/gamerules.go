package gamerules

// Rank is one of the eight ordered competitive skill tiers.
type Rank string

const (
	RankBronze      Rank = "bronze"
	RankSilver      Rank = "silver"
	RankGold        Rank = "gold"
	RankPlatinum    Rank = "platinum"
	RankDiamond     Rank = "diamond"
	RankMaster      Rank = "master"
	RankGrandmaster Rank = "grandmaster"
	RankChampion    Rank = "champion"
)

// rankOrder maps each tier to its index on the skill scale, lowest first.
var rankOrder = map[Rank]int{
	RankBronze:      0,
	RankSilver:      1,
	RankGold:        2,
	RankPlatinum:    3,
	RankDiamond:     4,
	RankMaster:      5,
	RankGrandmaster: 6,
	RankChampion:    7,
}

// AllRanks returns the tiers in ascending skill order.
func AllRanks() []Rank {
	return []Rank{
		RankBronze, RankSilver, RankGold, RankPlatinum,
		RankDiamond, RankMaster, RankGrandmaster, RankChampion,
	}
}

// Division is the 1-5 subdivision within a tier; 1 is the best.
type Division int

// Role is a queueable team role.
type Role string

const (
	RoleTank    Role = "tank"
	RoleDPS     Role = "dps"
	RoleSupport Role = "support"

	// RolePlayer is the placeholder assignment used by game modes that have
	// no per-role requirements.
	RolePlayer Role = "player"
)

// QueueRoles returns the roles a user may list as preferred, in display order.
func QueueRoles() []Role {
	return []Role{RoleTank, RoleDPS, RoleSupport}
}

// RoleEmojis decorate role-restricted session displays.
var RoleEmojis = map[Role]string{
	RoleTank:    "🛡️",
	RoleDPS:     "⚔️",
	RoleSupport: "💉",
}

// GameMode is a supported session game mode.
type GameMode string

const (
	ModeFiveVFive GameMode = "5v5"
	ModeSixVSix   GameMode = "6v6"
	ModeStadium   GameMode = "Stadium"
)

type modeConfig struct {
	teamSize     int
	requirements map[Role]int
}

// modeConfigs holds per-mode team sizes and role requirements. Modes with a
// nil requirements map are not role-restricted and track total headcount only.
var modeConfigs = map[GameMode]modeConfig{
	ModeFiveVFive: {teamSize: 5, requirements: map[Role]int{RoleTank: 1, RoleDPS: 2, RoleSupport: 2}},
	ModeSixVSix:   {teamSize: 6},
	ModeStadium:   {teamSize: 6},
}

// AllGameModes returns the supported modes in display order.
func AllGameModes() []GameMode {
	return []GameMode{ModeFiveVFive, ModeSixVSix, ModeStadium}
}

// ValidRank reports whether name is a recognized rank tier.
func ValidRank(name Rank) bool {
	_, ok := rankOrder[name]
	return ok
}

// ValidDivision reports whether n is a recognized division.
func ValidDivision(n Division) bool {
	return n >= 1 && n <= 5
}

// ValidRole reports whether name is a queueable role.
func ValidRole(name Role) bool {
	return name == RoleTank || name == RoleDPS || name == RoleSupport
}

// ValidGameMode reports whether name is a supported game mode.
func ValidGameMode(name GameMode) bool {
	_, ok := modeConfigs[name]
	return ok
}

// RoleRequirements returns the role→headcount table for mode. The map is
// empty for modes that are not role-restricted; callers should fall back to
// TeamSize for those.
func RoleRequirements(mode GameMode) map[Role]int {
	cfg, ok := modeConfigs[mode]
	if !ok || cfg.requirements == nil {
		return map[Role]int{}
	}
	out := make(map[Role]int, len(cfg.requirements))
	for role, n := range cfg.requirements {
		out[role] = n
	}
	return out
}

// RoleRestricted reports whether mode fills fixed per-role slots.
func RoleRestricted(mode GameMode) bool {
	cfg, ok := modeConfigs[mode]
	return ok && len(cfg.requirements) > 0
}

// TeamSize returns the roster target for mode, or 0 for unknown modes.
func TeamSize(mode GameMode) int {
	return modeConfigs[mode].teamSize
}

// rankValue collapses a (rank, division) pair onto a single integer scale
// where higher skill yields a larger number. Division 1 is the best within a
// tier, so it contributes the most.
func rankValue(rank Rank, div Division) (int, bool) {
	idx, ok := rankOrder[rank]
	if !ok {
		return 0, false
	}
	return idx*5 + (6 - int(div)), true
}

// RankDistance returns the absolute gap between two (rank, division) pairs on
// the combined scale. An unrecognized rank on either side yields 0: unknown
// skill is treated as compatible rather than blocking admission.
func RankDistance(rankA Rank, divA Division, rankB Rank, divB Division) int {
	a, okA := rankValue(rankA, divA)
	b, okB := rankValue(rankB, divB)
	if !okA || !okB {
		return 0
	}
	if a > b {
		return a - b
	}
	return b - a
}

// IsRankCompatible reports whether the candidate falls within maxDiff of the
// creator on the rank scale. A maxDiff of zero or less means unrestricted.
func IsRankCompatible(creatorRank Rank, creatorDiv Division, candidateRank Rank, candidateDiv Division, maxDiff int) bool {
	if maxDiff <= 0 {
		return true
	}
	return RankDistance(creatorRank, creatorDiv, candidateRank, candidateDiv) <= maxDiff
}
