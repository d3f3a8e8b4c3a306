package help

const QuickstartYAML = `# leakdiff Quick Start

categories:
  ip: "browserleaks.com/ip table, address + location + request headers"
  javascript: "browserleaks.com/javascript table, navigator + screen properties"
  ipinfo: "ipinfo.io/json fetched over plain HTTP, direct and through the SOCKS proxy"

sources:
  Chromium: "regular browser, headless by default (BROWSER_BINARY, HEADLESS_BROWSER; FIREFOX_* as fallbacks)"
  TorBrowser: "Chromium with stealth pages behind TOR_PROXY (HEADLESS_TBB); Firefox-based Tor Browser bundles are skipped"

commands:
  collect_all: |
    leakdiff collect

  collect_one: |
    leakdiff collect --category ip

  collect_structured: |
    leakdiff collect --format yaml

  compare_latest: |
    leakdiff diff --category ip
    leakdiff diff --category javascript Chromium TorBrowser

  quick_ip_check: |
    leakdiff probe
    leakdiff probe --browser

  browser_smoke_test: |
    leakdiff smoke

  list_runs: |
    leakdiff runs --limit 10

  run_details: |
    leakdiff run
    leakdiff run 5

key_files:
  - "data/<category>/<source>/<timestamp>.json (one snapshot per source and run)"
  - "data/runs/<timestamp>.json (run manifest)"
  - "data/leakdiff.db (run ledger)"

snapshot_layout:
  meta: "browser, timestamp, script_version, user_agent, error"
  data: "whitelisted fields in fixed order, null when the fetch failed"

configuration:
  - "Defaults, then leakdiff.yaml or --config, then .env, then environment, then flags"
  - "LEAKDIFF_DATA_DIR and --data-dir move the data root"
  - "LEAKDIFF_MONGO_URI mirrors every snapshot into MongoDB"

error_behavior:
  - "A failed fetch still writes a snapshot with meta.error and data: null"
  - "A missing browser binary skips that source with a warning"
  - "collect exits 0 with per-source failures, 2 when setup or writing fails"
  - "probe --browser exits 1 (regular browser), 2 (anonymizing binary missing), 3 (anonymizing browser)"
`
