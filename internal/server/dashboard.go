package server

// dashboardHTML is served at "/". __BASE__ is replaced by the API base path.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Mining Simulator</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  :root {
    --bg: #0c0a09; --surface: #1c1917; --border: rgba(249,115,22,0.12);
    --text: #fafaf9; --text-dim: #a8a29e; --text-muted: #57534e;
    --orange: #f97316; --green: #22c55e; --red: #ef4444;
  }
  body {
    font-family: -apple-system, 'Segoe UI', system-ui, sans-serif;
    background: var(--bg); color: var(--text);
    min-height: 100vh; padding: 40px 24px;
  }
  .container { max-width: 880px; margin: 0 auto; }
  .header {
    display: flex; align-items: center; gap: 16px;
    margin-bottom: 32px; padding-bottom: 24px;
    border-bottom: 1px solid var(--border);
  }
  .header h1 { font-size: 26px; font-weight: 800; color: var(--orange); }
  .header .spacer { flex: 1; }
  .status-pill {
    font-size: 12px; font-weight: 600; padding: 6px 14px; border-radius: 20px;
    color: var(--text-dim); border: 1px solid var(--border);
  }
  .status-pill.running { color: var(--green); border-color: rgba(34,197,94,0.3); }
  .status-pill.error { color: var(--red); border-color: rgba(239,68,68,0.3); }
  .controls { display: flex; gap: 12px; align-items: center; margin-bottom: 24px; }
  button {
    font: inherit; font-weight: 600; padding: 8px 20px; border-radius: 10px;
    border: 1px solid var(--border); background: var(--surface); color: var(--text); cursor: pointer;
  }
  button.primary { background: var(--orange); border-color: var(--orange); color: #111; }
  .slider { display: flex; gap: 8px; align-items: center; color: var(--text-dim); font-size: 13px; margin-left: auto; }
  .stats-grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; margin-bottom: 24px; }
  .stat-card { background: var(--surface); border: 1px solid var(--border); border-radius: 20px; padding: 24px; }
  .stat-label { font-size: 11px; text-transform: uppercase; letter-spacing: 1px; color: var(--text-muted); }
  .stat-value { font-size: 28px; font-weight: 700; margin-top: 8px; font-family: 'SF Mono', 'Menlo', monospace; }
  .console {
    background: #000; border: 1px solid var(--border); border-radius: 16px; padding: 16px;
    font-family: 'SF Mono', 'Menlo', monospace; font-size: 12px; color: var(--green);
    min-height: 220px; white-space: pre-wrap;
  }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Mining Simulator</h1>
    <div class="spacer"></div>
    <span class="status-pill" id="statusPill">stopped</span>
  </div>

  <div class="controls">
    <button class="primary" id="startBtn">Start Mining</button>
    <button id="stopBtn">Stop</button>
    <label class="slider">Difficulty
      <input type="range" min="1" max="5" value="2" id="difficulty">
      <span id="difficultyValue">2</span>
    </label>
  </div>

  <div class="stats-grid">
    <div class="stat-card"><div class="stat-label">Total Hashes</div><div class="stat-value" id="hashes">0</div></div>
    <div class="stat-card"><div class="stat-label">Hash Rate</div><div class="stat-value" id="rate">0 H/s</div></div>
    <div class="stat-card"><div class="stat-label">Time Elapsed</div><div class="stat-value" id="elapsed">0.0s</div></div>
  </div>

  <div class="console" id="console"></div>
</div>

<script>
const base = '__BASE__';
const $ = (id) => document.getElementById(id);

function render(snap, lines) {
  if (snap) {
    $('hashes').textContent = (snap.total_count || 0).toLocaleString();
    $('rate').textContent = Math.round(snap.rate || 0).toLocaleString() + ' H/s';
    $('elapsed').textContent = (snap.elapsed_seconds || 0).toFixed(1) + 's';
  }
  if (lines) $('console').textContent = lines.join('\n');
}

function setState(st) {
  const pill = $('statusPill');
  pill.textContent = st.last_error ? 'error: ' + st.last_error : st.state;
  pill.className = 'status-pill' + (st.running ? ' running' : '') + (st.last_error ? ' error' : '');
  $('difficulty').value = st.difficulty;
  $('difficultyValue').textContent = st.difficulty;
}

async function refresh() {
  try {
    const res = await fetch(base + '/status');
    const st = await res.json();
    setState(st);
    render(st.snapshot, st.lines);
  } catch (e) {
    $('statusPill').textContent = 'offline';
  }
}

async function post(path) {
  await fetch(base + path, { method: 'POST' });
  refresh();
}

$('startBtn').onclick = () => post('/start');
$('stopBtn').onclick = () => post('/stop');
$('difficulty').oninput = (e) => { $('difficultyValue').textContent = e.target.value; };
$('difficulty').onchange = (e) => post('/difficulty?value=' + e.target.value);

const events = new EventSource(base + '/events');
['started', 'alive', 'stopped'].forEach((kind) => {
  events.addEventListener(kind, (msg) => {
    const e = JSON.parse(msg.data);
    render(e.snapshot, e.lines);
    if (kind !== 'alive') refresh();
  });
});

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>`
