package brain

import "testing"

func TestParseBuild(t *testing.T) {
	cases := map[string]Build{
		"mage":      BuildMage,
		"Caster":    BuildMage,
		"dex":       BuildDexterity,
		"ROGUE":     BuildDexterity,
		"tank":      BuildTank,
		" heavy ":   BuildTank,
		"balanced":  BuildBalanced,
		"":          BuildBalanced,
		"warlock?!": BuildBalanced,
	}
	for in, want := range cases {
		if got := ParseBuild(in); got != want {
			t.Errorf("ParseBuild(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildBalancedIsNeutral(t *testing.T) {
	a := NewBuildAdapter(BuildBalanced)
	m := a.Modifier(false)
	if m.ChaseSpeedMult != 1 || m.CooldownMult != 1 || m.StaminaDrainMult != 1 || m.PunishMult != 1 {
		t.Errorf("balanced modifier not neutral: %+v", m)
	}
	if m.DodgeAdd != 0 || m.GuardBreakChance != 0 {
		t.Errorf("balanced modifier has leftovers: %+v", m)
	}
}

func TestBuildMageGetsChased(t *testing.T) {
	m := NewBuildAdapter(BuildMage).Modifier(false)
	if m.ChaseSpeedMult <= 1.2 {
		t.Errorf("mage chase mult = %v, want well above 1", m.ChaseSpeedMult)
	}
	if m.SpacingOffset >= 0 {
		t.Errorf("mage spacing = %v, want negative (close the gap)", m.SpacingOffset)
	}
	if m.DodgeAdd <= 0 {
		t.Errorf("mage dodge add = %v, want positive (projectiles)", m.DodgeAdd)
	}
}

func TestBuildTankGuardBreak(t *testing.T) {
	a := NewBuildAdapter(BuildTank)

	passive := a.Modifier(false)
	if passive.GuardBreakChance != 0.10 {
		t.Errorf("tank guard break = %v, want 0.10", passive.GuardBreakChance)
	}
	blocking := a.Modifier(true)
	if blocking.GuardBreakChance != tankGuardBreakBlocking {
		t.Errorf("tank guard break vs block = %v, want %v",
			blocking.GuardBreakChance, tankGuardBreakBlocking)
	}
	if blocking.StaminaDrainMult <= 1 {
		t.Errorf("tank stamina drain = %v, want above 1", blocking.StaminaDrainMult)
	}
}

func TestBuildDexterityGetsPunished(t *testing.T) {
	m := NewBuildAdapter(BuildDexterity).Modifier(false)
	if m.PunishMult < 1.5 {
		t.Errorf("dex punish mult = %v, want >= 1.5", m.PunishMult)
	}
	if m.ParryAdd <= 0 {
		t.Errorf("dex parry add = %v, want positive", m.ParryAdd)
	}
}

func TestBuildSwapMidSession(t *testing.T) {
	a := NewBuildAdapter(BuildBalanced)
	a.SetBuild(BuildMage)
	if a.Build() != BuildMage {
		t.Errorf("build = %v, want mage", a.Build())
	}
	if a.Modifier(false).ChaseSpeedMult == 1 {
		t.Error("swap should switch the counter vector")
	}
}
