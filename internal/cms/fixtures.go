package cms

import "github.com/chainlabs/questline/internal/models"

var fixtures = []models.CaseStudy{
	{
		ID:               "case-1",
		Title:            "FinBank — Instant KYC with Zero-Knowledge Proofs",
		ShortDescription: "KYC onboarding reduced from 48 hours to under 5 minutes using zero-knowledge proofs.",
		Description: "*Goal:* Reduce onboarding time from 48 h to <5 min.\n" +
			"*Outcome:* 93% faster onboarding, no data leaks, SOC 2 Type II in 10 weeks.\n\n" +
			"## Overview\n" +
			"FinBank set out to eliminate the slow, error-prone KYC process that frustrated customers " +
			"and overloaded compliance teams. The legacy flow required customers to upload sensitive " +
			"documents and wait for human review across multiple vendors, stretching turnaround to 48 hours.\n\n" +
			"## What We Built\n" +
			"A selective-disclosure identity architecture grounded in zero-knowledge proofs. Customers " +
			"present cryptographic attestations that they meet policy thresholds without revealing the " +
			"underlying data; FinBank verifies the proofs in milliseconds.\n\n" +
			"## Outcomes\n" +
			"- Time to decision: from ~48 hours to under 5 minutes for 87% of applicants.\n" +
			"- No raw PII leaves the user's device in auto-pass flows.\n" +
			"- SOC 2 Type II achieved in 10 weeks.\n" +
			"- Manual reviews dropped by 68%.\n",
		Thumbnail: "https://via.placeholder.com/600x400?text=FinBank+KYC",
	},
	{
		ID:               "case-2",
		Title:            "MediShare — HIPAA-Safe Analytics over 750 M Records",
		ShortDescription: "HIPAA-compliant analytics on 750 million patient records without exposing raw data.",
		Description: "*Goal:* Unlock cross-network analytics without moving or exposing patient data.\n" +
			"*Outcome:* Research queries run in minutes over 750 M records with formal privacy guarantees.\n\n" +
			"## Background\n" +
			"MediShare's partner hospitals could not pool data for research without months of legal review " +
			"per study. Every collaboration stalled on the same question: how do we analyze records we are " +
			"not allowed to see?\n\n" +
			"## Solution\n" +
			"A federated analytics layer with differential privacy at the query boundary. Computations run " +
			"where the data lives; only noised aggregates leave the enclave, with per-study privacy budgets " +
			"enforced by policy as code.\n\n" +
			"## Results\n" +
			"- Study setup time fell from months to days.\n" +
			"- Zero raw-record egress across 40+ studies.\n" +
			"- Privacy budget accounting satisfied both HIPAA auditors and partner IRBs.\n",
		Thumbnail: "https://via.placeholder.com/600x400?text=MediShare+Analytics",
	},
	{
		ID:               "case-3",
		Title:            "CityGov — Transparent Grant Distribution",
		ShortDescription: "Public grant allocation made verifiable end-to-end while keeping applicant data private.",
		Description: "*Goal:* Let citizens verify that grant money followed published policy.\n" +
			"*Outcome:* Every allocation is publicly auditable without exposing a single applicant record.\n\n" +
			"## Context\n" +
			"CityGov's grant programs faced recurring accusations of favoritism. Publishing raw applicant " +
			"data was never an option, so transparency and privacy were treated as a forced trade-off.\n\n" +
			"## Approach\n" +
			"Intake submissions are committed to Merkle roots per window; scoring runs against a canonical, " +
			"versioned policy; batched proofs attest that allocations match policy and budget. Citizens see " +
			"aggregate, differentially private statistics by neighborhood and sector.\n\n" +
			"## Why It Matters\n" +
			"Disputes now resolve against published commitments instead of press releases. Appeal volume " +
			"dropped by half in the first cycle, and two neighboring municipalities adopted the same stack.\n",
		Thumbnail: "https://via.placeholder.com/600x400?text=CityGov+Grants",
	},
}
